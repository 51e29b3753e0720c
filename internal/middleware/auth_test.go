package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iagoricardo/ainlo-server/internal/config"
	"github.com/iagoricardo/ainlo-server/internal/services"
	"github.com/iagoricardo/ainlo-server/pkg/models"
)

func newAuthService(t *testing.T) *services.AuthService {
	t.Helper()

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 1})

	return services.NewAuthService(cfg, logger, mockDB, redisClient, discardEvents{})
}

type discardEvents struct{}

func (discardEvents) PublishUsageEvent(eventType, accountID string, payload map[string]interface{}) {}

func testRouter(authService *services.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	router := gin.New()
	router.GET("/protected", Auth(authService, logger), func(c *gin.Context) {
		userID, plan, ok := GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "plan": plan, "ok": ok})
	})
	router.GET("/optional", OptionalAuth(authService, logger), func(c *gin.Context) {
		_, _, ok := GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	router.GET("/admin", Auth(authService, logger), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doGet(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestAuth_MissingHeader(t *testing.T) {
	router := testRouter(newAuthService(t))

	recorder := doGet(router, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "AUTH_REQUIRED")
}

func TestAuth_MalformedHeader(t *testing.T) {
	router := testRouter(newAuthService(t))

	for _, header := range []string{"token-without-scheme", "Basic abc", "Bearer"} {
		recorder := doGet(router, "/protected", header)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code, header)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	router := testRouter(newAuthService(t))

	recorder := doGet(router, "/protected", "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuth_ValidToken(t *testing.T) {
	authService := newAuthService(t)
	router := testRouter(authService)

	account := &models.Account{ID: uuid.New(), Plan: models.PlanPro, Role: models.RoleUser}
	token, _, err := authService.IssueToken(account)
	require.NoError(t, err)

	recorder := doGet(router, "/protected", "Bearer "+token)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), account.ID.String())
	assert.Contains(t, recorder.Body.String(), models.PlanPro)
}

func TestOptionalAuth_AnonymousPassesThrough(t *testing.T) {
	router := testRouter(newAuthService(t))

	recorder := doGet(router, "/optional", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"authenticated":false`)
}

func TestOptionalAuth_InvalidTokenStillPassesThrough(t *testing.T) {
	router := testRouter(newAuthService(t))

	recorder := doGet(router, "/optional", "Bearer garbage")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"authenticated":false`)
}

func TestRequireRole(t *testing.T) {
	authService := newAuthService(t)
	router := testRouter(authService)

	userToken, _, err := authService.IssueToken(&models.Account{ID: uuid.New(), Plan: models.PlanFree, Role: models.RoleUser})
	require.NoError(t, err)
	adminToken, _, err := authService.IssueToken(&models.Account{ID: uuid.New(), Plan: models.PlanPro, Role: models.RoleAdmin})
	require.NoError(t, err)

	recorder := doGet(router, "/admin", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = doGet(router, "/admin", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
