package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iagoricardo/ainlo-server/internal/config"
)

func disabledBus(t *testing.T) *MessageBus {
	t.Helper()

	cfg := &config.Config{}
	cfg.Kafka.Enabled = false

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	bus, err := NewMessageBus(cfg, logger)
	require.NoError(t, err)
	return bus
}

func TestMessageBus_DisabledPublishIsNoop(t *testing.T) {
	bus := disabledBus(t)

	assert.NotPanics(t, func() {
		bus.PublishUsageEvent("generation.completed", "account-1", map[string]interface{}{
			"outcome": "success",
		})
	})
}

func TestMessageBus_DisabledConsumerBlocksUntilCancel(t *testing.T) {
	bus := disabledBus(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bus.ConsumeUsageEvents(ctx, func(UsageEvent) error {
		t.Fatal("disabled bus must not deliver events")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMessageBus_DisabledCloseAndMetrics(t *testing.T) {
	bus := disabledBus(t)

	assert.NoError(t, bus.Close())

	metrics := bus.GetMetrics()
	assert.Equal(t, false, metrics["enabled"])
}

func TestMessageBus_EnabledConstruction(t *testing.T) {
	cfg := &config.Config{}
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.Topics.UsageEvents = "usage-events"

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	// Construction does not dial; it only configures writers/readers.
	bus, err := NewMessageBus(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, "usage-events", bus.topic)
	assert.NotNil(t, bus.writer)
	assert.NotNil(t, bus.reader)

	assert.NoError(t, bus.Close())
}
