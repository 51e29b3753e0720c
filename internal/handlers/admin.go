package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/messaging"
	"github.com/iagoricardo/ainlo-server/internal/services"
)

type AdminHandler struct {
	analyticsService *services.AnalyticsService
	healthService    *services.HealthService
	messageBus       *messaging.MessageBus
	logger           *logrus.Logger
}

func NewAdminHandler(analyticsService *services.AnalyticsService, healthService *services.HealthService, messageBus *messaging.MessageBus, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		analyticsService: analyticsService,
		healthService:    healthService,
		messageBus:       messageBus,
		logger:           logger,
	}
}

// Overview is the admin dashboard's single-call summary: health,
// usage aggregates and message-bus state.
func (h *AdminHandler) Overview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"health":      h.healthService.CheckHealth(),
		"usage":       h.analyticsService.Overview(),
		"message_bus": h.messageBus.GetMetrics(),
	})
}

// Analytics serves the generation latency and plan breakdown detail.
func (h *AdminHandler) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"usage":          h.analyticsService.Overview(),
		"plan_breakdown": h.analyticsService.PlanBreakdown(),
	})
}
