package services

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/iagoricardo/ainlo-server/pkg/models"
)

// AnalyticsService aggregates usage events in memory for the admin
// overview. Events arrive either directly from the request path or
// through the usage-events consumer when Kafka is enabled.
type AnalyticsService struct {
	logger *logrus.Logger

	mu         sync.RWMutex
	outcomes   map[string]int64
	durations  []float64 // generation latency in seconds
	byPlan     map[string]int64
	firstEvent time.Time
	lastEvent  time.Time
}

type UsageOverview struct {
	TotalGenerations  int64            `json:"total_generations"`
	Outcomes          map[string]int64 `json:"outcomes"`
	GenerationsByPlan map[string]int64 `json:"generations_by_plan"`
	MeanDuration      float64          `json:"mean_duration_seconds"`
	P50Duration       float64          `json:"p50_duration_seconds"`
	P95Duration       float64          `json:"p95_duration_seconds"`
	FirstEvent        *time.Time       `json:"first_event,omitempty"`
	LastEvent         *time.Time       `json:"last_event,omitempty"`
}

const maxDurationSamples = 10000

func NewAnalyticsService(logger *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{
		logger:   logger,
		outcomes: make(map[string]int64),
		byPlan:   make(map[string]int64),
	}
}

// RecordGeneration folds one generation outcome into the aggregates.
func (s *AnalyticsService) RecordGeneration(outcome, plan string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.firstEvent.IsZero() {
		s.firstEvent = now
	}
	s.lastEvent = now

	s.outcomes[outcome]++
	if plan != "" {
		s.byPlan[plan]++
	}

	if outcome == "success" || outcome == "not_saved" {
		s.durations = append(s.durations, duration.Seconds())
		if len(s.durations) > maxDurationSamples {
			s.durations = s.durations[len(s.durations)-maxDurationSamples:]
		}
	}
}

// HandleUsageEvent ingests an event from the message bus. Unknown
// event types are counted but otherwise ignored.
func (s *AnalyticsService) HandleUsageEvent(eventType string, payload map[string]interface{}) {
	switch eventType {
	case "generation.completed", "generation.failed":
		outcome, _ := payload["outcome"].(string)
		if outcome == "" {
			outcome = "unknown"
		}
		plan, _ := payload["plan"].(string)
		var duration time.Duration
		if secs, ok := payload["duration_seconds"].(float64); ok {
			duration = time.Duration(secs * float64(time.Second))
		}
		s.RecordGeneration(outcome, plan, duration)
	case "artifact.created", "artifact.deleted", "artifact.imported", "account.upgraded":
		s.mu.Lock()
		s.outcomes[eventType]++
		s.lastEvent = time.Now()
		if s.firstEvent.IsZero() {
			s.firstEvent = s.lastEvent
		}
		s.mu.Unlock()
	default:
		s.logger.WithField("event_type", eventType).Debug("Ignoring unrecognized usage event")
	}
}

// Overview returns a snapshot of the aggregates. Latency percentiles
// come from gonum's empirical quantiles over the retained samples.
func (s *AnalyticsService) Overview() *UsageOverview {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overview := &UsageOverview{
		Outcomes:          make(map[string]int64, len(s.outcomes)),
		GenerationsByPlan: make(map[string]int64, len(s.byPlan)),
	}

	for outcome, count := range s.outcomes {
		overview.Outcomes[outcome] = count
		switch outcome {
		case "success", "not_saved", "endpoint_error", "empty_response":
			overview.TotalGenerations += count
		}
	}
	for plan, count := range s.byPlan {
		overview.GenerationsByPlan[plan] = count
	}

	if len(s.durations) > 0 {
		samples := make([]float64, len(s.durations))
		copy(samples, s.durations)
		sort.Float64s(samples)

		overview.MeanDuration = stat.Mean(samples, nil)
		overview.P50Duration = stat.Quantile(0.5, stat.Empirical, samples, nil)
		overview.P95Duration = stat.Quantile(0.95, stat.Empirical, samples, nil)
	}

	if !s.firstEvent.IsZero() {
		first := s.firstEvent
		last := s.lastEvent
		overview.FirstEvent = &first
		overview.LastEvent = &last
	}

	return overview
}

// PlanBreakdown reports how many recorded generations each plan
// produced, defaulting missing plans to zero so the admin UI always
// sees both tiers.
func (s *AnalyticsService) PlanBreakdown() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	breakdown := map[string]int64{
		models.PlanFree: 0,
		models.PlanPro:  0,
	}
	for plan, count := range s.byPlan {
		breakdown[plan] = count
	}
	return breakdown
}
