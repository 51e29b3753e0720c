package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iagoricardo/ainlo-server/pkg/models"
)

func errorBody(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// respondServiceError translates service sentinels into the fixed
// user-facing categories. Anything unrecognized becomes a generic 500
// so internal detail never leaks.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrAccountNotFound):
		c.JSON(http.StatusUnauthorized, errorBody("INVALID_CREDENTIALS", models.MsgInvalidCredentials))
	case errors.Is(err, models.ErrEmailNotConfirmed):
		c.JSON(http.StatusUnauthorized, errorBody("INVALID_CREDENTIALS", models.MsgInvalidCredentials))
	case errors.Is(err, models.ErrEmailTaken):
		c.JSON(http.StatusConflict, errorBody("EMAIL_TAKEN", models.MsgEmailTaken))
	case errors.Is(err, models.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, errorBody("WEAK_PASSWORD", models.MsgWeakPassword))
	case errors.Is(err, models.ErrArtifactNotFound):
		c.JSON(http.StatusNotFound, errorBody("ARTIFACT_NOT_FOUND", "Criação não encontrada."))
	case errors.Is(err, models.ErrArtifactLimitReached):
		c.JSON(http.StatusForbidden, errorBody("LIMIT_REACHED", models.MsgLimitReached))
	case errors.Is(err, models.ErrGenerationInFlight):
		c.JSON(http.StatusConflict, errorBody("GENERATION_IN_FLIGHT", "Já existe uma geração em andamento."))
	case errors.Is(err, models.ErrUnsupportedFileType):
		c.JSON(http.StatusBadRequest, errorBody("UNSUPPORTED_FILE_TYPE", "Tipo de arquivo não suportado. Envie uma imagem ou PDF."))
	case errors.Is(err, models.ErrInvalidImport):
		c.JSON(http.StatusBadRequest, errorBody("INVALID_IMPORT", models.MsgInvalidImport))
	case errors.Is(err, models.ErrEntitlementUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorBody("ENTITLEMENT_UNAVAILABLE", "Não foi possível verificar seu plano. Tente novamente."))
	case errors.Is(err, models.ErrEmptyGeneration):
		c.JSON(http.StatusBadGateway, errorBody("GENERATION_FAILED", models.MsgGenerationFailed))
	default:
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL_SERVER_ERROR", "Ocorreu um erro inesperado. Tente novamente."))
	}
}
