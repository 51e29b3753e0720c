package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/services"
)

type Handlers struct {
	Health      *HealthHandler
	Auth        *AuthHandler
	Generation  *GenerationHandler
	Artifact    *ArtifactHandler
	Entitlement *EntitlementHandler
	Admin       *AdminHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(logger, services.Health),
		Auth:        NewAuthHandler(services.Auth, services.Entitlement, services.Generation, logger),
		Generation:  NewGenerationHandler(services.Auth, services.Generation, logger),
		Artifact:    NewArtifactHandler(services.Auth, services.Artifact, logger),
		Entitlement: NewEntitlementHandler(services.Entitlement, logger),
		Admin:       NewAdminHandler(services.Analytics, services.Health, services.MessageBus, logger),
	}
}
