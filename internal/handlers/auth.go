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

// sessionIDHeader carries the caller's pre-auth session identity so a
// generation held before sign-in can be found again afterwards.
const sessionIDHeader = "X-Session-ID"

type AuthHandler struct {
	authService        *services.AuthService
	entitlementService *services.EntitlementService
	generationService  *services.GenerationService
	validator          *validator.Validate
	logger             *logrus.Logger
}

func NewAuthHandler(authService *services.AuthService, entitlementService *services.EntitlementService, generationService *services.GenerationService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService:        authService,
		entitlementService: entitlementService,
		generationService:  generationService,
		validator:          validator.New(),
		logger:             logger,
	}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var request models.SignUpRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.WithError(err).Warn("Invalid JSON in signup request")
		c.JSON(http.StatusBadRequest, errorBody("INVALID_JSON", "Invalid JSON format"))
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_FAILED", err.Error()))
		return
	}

	account, err := h.authService.SignUp(c.Request.Context(), request)
	if err != nil {
		if errors.Is(err, models.ErrEmailNotConfirmed) {
			// Account created, confirmation pending; no token yet.
			c.JSON(http.StatusCreated, gin.H{
				"account": account,
				"message": models.MsgEmailNotConfirmed,
			})
			return
		}
		respondServiceError(c, err)
		return
	}

	h.respondWithToken(c, account, http.StatusCreated)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var request models.SignInRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.WithError(err).Warn("Invalid JSON in signin request")
		c.JSON(http.StatusBadRequest, errorBody("INVALID_JSON", "Invalid JSON format"))
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_FAILED", err.Error()))
		return
	}

	account, err := h.authService.SignIn(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondWithToken(c, account, http.StatusOK)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, account *models.Account, status int) {
	token, expiresAt, err := h.authService.IssueToken(account)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token")
		respondServiceError(c, err)
		return
	}

	response := models.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   *account,
	}

	// A generation request held while the caller was anonymous replays
	// exactly once under the new identity.
	if sessionID := c.GetHeader(sessionIDHeader); sessionID != "" {
		response.Replayed = h.generationService.ReplayPending(sessionID, account)
	}

	c.JSON(status, response)
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	if err := h.authService.SignOut(c.Request.Context(), userID); err != nil {
		h.logger.WithError(err).Warn("Failed to clear session state on signout")
	}

	if sessionID := c.GetHeader(sessionIDHeader); sessionID != "" {
		h.generationService.DiscardPending(c.Request.Context(), sessionID)
	}

	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Session(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	account, err := h.authService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	snapshot, err := h.entitlementService.Snapshot(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{
		Account:     *account,
		Entitlement: *snapshot,
	})
}

func (h *AuthHandler) Upgrade(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	var request models.UpgradeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_JSON", "Invalid JSON format"))
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_FAILED", err.Error()))
		return
	}

	account, err := h.authService.UpgradePlan(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// The plan claim changed; reissue so the client's token matches.
	h.respondWithToken(c, account, http.StatusOK)
}
