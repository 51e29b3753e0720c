package services

import (
	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/config"
	"github.com/iagoricardo/ainlo-server/internal/database"
	"github.com/iagoricardo/ainlo-server/internal/genai"
	"github.com/iagoricardo/ainlo-server/internal/messaging"
)

type Services struct {
	Auth        *AuthService
	Artifact    *ArtifactService
	Entitlement *EntitlementService
	Generation  *GenerationService
	RateLimit   *RateLimitService
	Analytics   *AnalyticsService
	Health      *HealthService
	MessageBus  *messaging.MessageBus
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	messageBus, err := messaging.NewMessageBus(cfg, logger)
	if err != nil {
		return nil, err
	}

	analyticsService := NewAnalyticsService(logger)

	// With Kafka enabled, analytics is fed by the usage-events
	// consumer so every instance sees the whole fleet's events.
	// Without it, events are folded in locally at publish time.
	var events EventPublisher = messageBus
	if !cfg.Kafka.Enabled {
		events = &localEventSink{bus: messageBus, analytics: analyticsService}
	}

	authService := NewAuthService(cfg, logger, db.PG, db.Redis, events)

	artifactService, err := NewArtifactService(cfg, logger, db.PG, db.Redis, events)
	if err != nil {
		return nil, err
	}

	entitlementService := NewEntitlementService(cfg, logger, authService, artifactService, db.Redis)

	generator := genai.NewClient(cfg.GenAI, logger)
	generationService := NewGenerationService(cfg, logger, generator, entitlementService, artifactService, db.Redis, events)

	rateLimitService := NewRateLimitService(cfg, logger, db.Redis)
	healthService := NewHealthService(cfg, logger, db)

	return &Services{
		Auth:        authService,
		Artifact:    artifactService,
		Entitlement: entitlementService,
		Generation:  generationService,
		RateLimit:   rateLimitService,
		Analytics:   analyticsService,
		Health:      healthService,
		MessageBus:  messageBus,
	}, nil
}

// localEventSink forwards events to the (no-op) bus and folds them
// straight into the in-process analytics aggregates.
type localEventSink struct {
	bus       *messaging.MessageBus
	analytics *AnalyticsService
}

func (s *localEventSink) PublishUsageEvent(eventType, accountID string, payload map[string]interface{}) {
	s.bus.PublishUsageEvent(eventType, accountID, payload)
	s.analytics.HandleUsageEvent(eventType, payload)
}
