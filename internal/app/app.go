package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/config"
	"github.com/iagoricardo/ainlo-server/internal/database"
	"github.com/iagoricardo/ainlo-server/internal/handlers"
	"github.com/iagoricardo/ainlo-server/internal/messaging"
	"github.com/iagoricardo/ainlo-server/internal/middleware"
	"github.com/iagoricardo/ainlo-server/internal/services"
	"github.com/iagoricardo/ainlo-server/pkg/models"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine

	consumerCancel context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	services, err := services.New(cfg, app.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = services

	app.handlers = handlers.New(app.logger, services)

	app.setupRouter()
	app.startUsageConsumer()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.consumerCancel != nil {
		a.consumerCancel()
	}

	if err := a.services.MessageBus.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing message bus")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

// startUsageConsumer feeds the analytics aggregates from the usage
// topic. With Kafka disabled, events are folded in at publish time
// instead and no consumer runs.
func (a *App) startUsageConsumer() {
	if !a.config.Kafka.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.consumerCancel = cancel

	go func() {
		err := a.services.MessageBus.ConsumeUsageEvents(ctx, func(event messaging.UsageEvent) error {
			a.services.Analytics.HandleUsageEvent(event.Type, event.Payload)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Error("Usage event consumer stopped")
		}
	}()
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		// Auth surface: no token required.
		auth := api.Group("/auth")
		{
			auth.POST("/signup", a.handlers.Auth.SignUp)
			auth.POST("/signin", a.handlers.Auth.SignIn)
		}

		// Generation accepts anonymous callers so their request can be
		// held for replay after sign-in.
		api.POST("/generations",
			middleware.OptionalAuth(a.services.Auth, a.logger),
			middleware.RateLimit(a.services.RateLimit, a.logger),
			a.handlers.Generation.Generate)
		api.DELETE("/generations/pending",
			middleware.OptionalAuth(a.services.Auth, a.logger),
			a.handlers.Generation.DiscardPending)

		authed := api.Group("")
		authed.Use(middleware.Auth(a.services.Auth, a.logger))
		authed.Use(middleware.RateLimit(a.services.RateLimit, a.logger))
		{
			authed.POST("/auth/signout", a.handlers.Auth.SignOut)
			authed.GET("/auth/session", a.handlers.Auth.Session)
			authed.POST("/auth/upgrade", a.handlers.Auth.Upgrade)

			authed.GET("/generations/status", a.handlers.Generation.Status)

			authed.GET("/entitlement", a.handlers.Entitlement.Snapshot)

			artifacts := authed.Group("/artifacts")
			{
				artifacts.GET("", a.handlers.Artifact.List)
				artifacts.GET("/active", a.handlers.Artifact.Active)
				artifacts.POST("/import", a.handlers.Artifact.Import)
				artifacts.GET("/:id", a.handlers.Artifact.Get)
				artifacts.PUT("/:id/active", a.handlers.Artifact.SetActive)
				artifacts.DELETE("/:id", a.handlers.Artifact.Delete)
				artifacts.GET("/:id/export", a.handlers.Artifact.Export)
			}

			admin := authed.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/overview", a.handlers.Admin.Overview)
				admin.GET("/analytics", a.handlers.Admin.Analytics)
			}
		}
	}

	a.router = router
}
