package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/services"
	"github.com/iagoricardo/ainlo-server/pkg/models"
)

// maxImportSize bounds import payloads; generated documents are single
// HTML files, so anything past this is not a legitimate export.
const maxImportSize = 10 << 20 // 10MB

type ArtifactHandler struct {
	authService     *services.AuthService
	artifactService *services.ArtifactService
	logger          *logrus.Logger
}

func NewArtifactHandler(authService *services.AuthService, artifactService *services.ArtifactService, logger *logrus.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		authService:     authService,
		artifactService: artifactService,
		logger:          logger,
	}
}

func (h *ArtifactHandler) List(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	artifacts, stale, err := h.artifactService.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ArtifactListResponse{
		Artifacts: artifacts,
		Total:     len(artifacts),
		Stale:     stale,
	})
}

func (h *ArtifactHandler) Get(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	artifactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ARTIFACT_ID", "Invalid artifact ID format"))
		return
	}

	artifact, err := h.artifactService.GetByID(c.Request.Context(), userID, artifactID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, artifact)
}

// Active reports which artifact the caller last generated or opened.
func (h *ArtifactHandler) Active(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	activeID := h.artifactService.ActiveID(c.Request.Context(), userID)
	if activeID == nil {
		c.JSON(http.StatusOK, gin.H{"active_id": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"active_id": activeID})
}

func (h *ArtifactHandler) SetActive(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	artifactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ARTIFACT_ID", "Invalid artifact ID format"))
		return
	}

	// Setting a foreign or missing id active would point the dashboard
	// at nothing, so the artifact must exist for this owner first.
	if _, err := h.artifactService.GetByID(c.Request.Context(), userID, artifactID); err != nil {
		respondServiceError(c, err)
		return
	}

	h.artifactService.SetActive(c.Request.Context(), userID, artifactID)
	c.Status(http.StatusNoContent)
}

func (h *ArtifactHandler) Delete(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	artifactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ARTIFACT_ID", "Invalid artifact ID format"))
		return
	}

	if err := h.artifactService.Delete(c.Request.Context(), userID, artifactID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ArtifactHandler) Export(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	artifactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ARTIFACT_ID", "Invalid artifact ID format"))
		return
	}

	export, err := h.artifactService.Export(c.Request.Context(), userID, artifactID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Name+".json"))
	c.JSON(http.StatusOK, export)
}

func (h *ArtifactHandler) Import(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	account, err := h.authService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_IMPORT", models.MsgInvalidImport))
		return
	}

	artifact, err := h.artifactService.Import(c.Request.Context(), account, raw)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"artifact_id": artifact.ID,
		"owner_id":    userID,
	}).Info("Artifact imported")

	c.JSON(http.StatusCreated, artifact)
}
