package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iagoricardo/ainlo-server/pkg/models"
)

func TestAnalyticsService_Overview(t *testing.T) {
	service := NewAnalyticsService(testLogger())

	for i := 0; i < 9; i++ {
		service.RecordGeneration("success", models.PlanFree, time.Duration(i+1)*time.Second)
	}
	service.RecordGeneration("success", models.PlanPro, 10*time.Second)
	service.RecordGeneration("endpoint_error", models.PlanFree, 0)
	service.RecordGeneration("empty_response", models.PlanPro, 0)

	overview := service.Overview()

	assert.Equal(t, int64(12), overview.TotalGenerations)
	assert.Equal(t, int64(10), overview.Outcomes["success"])
	assert.Equal(t, int64(1), overview.Outcomes["endpoint_error"])
	assert.Equal(t, int64(10), overview.GenerationsByPlan[models.PlanFree])
	assert.Equal(t, int64(2), overview.GenerationsByPlan[models.PlanPro])

	// Durations 1s..10s: mean 5.5s, and p95 sits in the top samples.
	assert.InDelta(t, 5.5, overview.MeanDuration, 0.001)
	assert.InDelta(t, 5.0, overview.P50Duration, 1.0)
	assert.GreaterOrEqual(t, overview.P95Duration, 9.0)

	require.NotNil(t, overview.FirstEvent)
	require.NotNil(t, overview.LastEvent)
}

func TestAnalyticsService_OverviewEmpty(t *testing.T) {
	service := NewAnalyticsService(testLogger())

	overview := service.Overview()
	assert.Zero(t, overview.TotalGenerations)
	assert.Zero(t, overview.MeanDuration)
	assert.Nil(t, overview.FirstEvent)
}

func TestAnalyticsService_HandleUsageEvent(t *testing.T) {
	service := NewAnalyticsService(testLogger())

	service.HandleUsageEvent("generation.completed", map[string]interface{}{
		"outcome":          "success",
		"plan":             models.PlanPro,
		"duration_seconds": 2.5,
	})
	service.HandleUsageEvent("generation.failed", map[string]interface{}{
		"outcome": "endpoint_error",
		"plan":    models.PlanFree,
	})
	service.HandleUsageEvent("artifact.created", map[string]interface{}{})
	service.HandleUsageEvent("something.unknown", map[string]interface{}{})

	overview := service.Overview()
	assert.Equal(t, int64(1), overview.Outcomes["success"])
	assert.Equal(t, int64(1), overview.Outcomes["endpoint_error"])
	assert.Equal(t, int64(1), overview.Outcomes["artifact.created"])
	assert.Equal(t, int64(2), overview.TotalGenerations)
	assert.InDelta(t, 2.5, overview.MeanDuration, 0.001)
}

func TestAnalyticsService_PlanBreakdown(t *testing.T) {
	service := NewAnalyticsService(testLogger())

	breakdown := service.PlanBreakdown()
	assert.Equal(t, int64(0), breakdown[models.PlanFree])
	assert.Equal(t, int64(0), breakdown[models.PlanPro])

	service.RecordGeneration("success", models.PlanPro, time.Second)
	breakdown = service.PlanBreakdown()
	assert.Equal(t, int64(1), breakdown[models.PlanPro])
}
