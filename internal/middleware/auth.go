package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/services"
	"github.com/iagoricardo/ainlo-server/pkg/models"
)

func Auth(authService *services.AuthService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := authenticate(c, authService, logger)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "AUTH_REQUIRED",
					"message": "Authentication required",
				},
			})
			c.Abort()
			return
		}

		setUserContext(c, claims)
		c.Next()
	}
}

// OptionalAuth populates the user context when a valid token is
// present but lets anonymous requests through. Handlers that need an
// identity decide what an anonymous request means for them.
func OptionalAuth(authService *services.AuthService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := authenticate(c, authService, logger); ok {
			setUserContext(c, claims)
		}
		c.Next()
	}
}

// RequireRole guards admin routes. It must run after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, _ := c.Get("user_role")
		if userRole != role {
			c.JSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Insufficient permissions",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, authService *services.AuthService, logger *logrus.Logger) (*models.JWTClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, false
	}

	claims, err := authService.ValidateToken(tokenParts[1])
	if err != nil {
		logger.WithError(err).Warn("Invalid JWT token")
		return nil, false
	}

	return claims, true
}

func setUserContext(c *gin.Context, claims *models.JWTClaims) {
	c.Set("user_id", claims.UserID)
	c.Set("user_plan", claims.Plan)
	c.Set("user_role", claims.Role)
}

// GetUserFromContext returns the authenticated user's identity, or ok
// false when the request is anonymous.
func GetUserFromContext(c *gin.Context) (uuid.UUID, string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, "", false
	}
	plan, _ := c.Get("user_plan")
	planStr, _ := plan.(string)

	return userID.(uuid.UUID), planStr, true
}
