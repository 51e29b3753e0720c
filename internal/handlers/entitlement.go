package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/services"
)

type EntitlementHandler struct {
	entitlementService *services.EntitlementService
	logger             *logrus.Logger
}

func NewEntitlementHandler(entitlementService *services.EntitlementService, logger *logrus.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		entitlementService: entitlementService,
		logger:             logger,
	}
}

// Snapshot serves the caller's plan and usage view. When the store is
// unreachable it falls back to the last cached copy, marked stale.
func (h *EntitlementHandler) Snapshot(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	snapshot, err := h.entitlementService.Snapshot(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
