package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/services"
	"github.com/iagoricardo/ainlo-server/pkg/models"
)

type GenerationHandler struct {
	authService       *services.AuthService
	generationService *services.GenerationService
	validator         *validator.Validate
	logger            *logrus.Logger
}

func NewGenerationHandler(authService *services.AuthService, generationService *services.GenerationService, logger *logrus.Logger) *GenerationHandler {
	return &GenerationHandler{
		authService:       authService,
		generationService: generationService,
		validator:         validator.New(),
		logger:            logger,
	}
}

// Generate runs one generation for the authenticated caller. Anonymous
// callers get the request parked under their session id and a 401, so
// signing in can pick it up where it left off.
func (h *GenerationHandler) Generate(c *gin.Context) {
	var request models.GenerationRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.WithError(err).Warn("Invalid JSON in generation request")
		c.JSON(http.StatusBadRequest, errorBody("INVALID_JSON", "Invalid JSON format"))
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_FAILED", err.Error()))
		return
	}

	if !request.HasInput() {
		c.JSON(http.StatusBadRequest, errorBody("EMPTY_REQUEST", "Envie um texto ou um arquivo para gerar."))
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		held := false
		if sessionID := c.GetHeader(sessionIDHeader); sessionID != "" {
			if err := h.generationService.HoldPending(c.Request.Context(), sessionID, request); err != nil {
				h.logger.WithError(err).Warn("Failed to hold pending generation")
			} else {
				held = true
			}
		}

		body := errorBody("AUTH_REQUIRED", "Entre na sua conta para gerar.")
		body["held"] = held
		c.JSON(http.StatusUnauthorized, body)
		return
	}

	account, err := h.authService.GetAccount(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result, err := h.generationService.Generate(c.Request.Context(), account, request)
	if err != nil {
		// The document was produced but could not be persisted; hand
		// it over anyway so the caller can export it.
		if errors.Is(err, models.ErrArtifactNotSaved) && result != nil {
			c.JSON(http.StatusOK, gin.H{
				"html":    result.HTML,
				"saved":   false,
				"message": models.MsgNotSaved,
			})
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *GenerationHandler) Status(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	status := h.generationService.Status(c.Request.Context(), userID)
	c.JSON(http.StatusOK, status)
}

// DiscardPending drops a held generation without replaying it.
func (h *GenerationHandler) DiscardPending(c *gin.Context) {
	sessionID := c.GetHeader(sessionIDHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, errorBody("MISSING_SESSION_ID", "X-Session-ID header is required"))
		return
	}

	h.generationService.DiscardPending(c.Request.Context(), sessionID)
	c.Status(http.StatusNoContent)
}
