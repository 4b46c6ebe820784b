package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/AZMA1N/Debate-Calender/internal/app"
	"github.com/AZMA1N/Debate-Calender/internal/config"
	"github.com/AZMA1N/Debate-Calender/internal/handler"
	authHandler "github.com/AZMA1N/Debate-Calender/internal/handler/auth"
	eventHandler "github.com/AZMA1N/Debate-Calender/internal/handler/event"
	reminderHandler "github.com/AZMA1N/Debate-Calender/internal/handler/reminder"
	"github.com/AZMA1N/Debate-Calender/internal/middleware"
	"github.com/AZMA1N/Debate-Calender/internal/router"
	authService "github.com/AZMA1N/Debate-Calender/internal/service/auth"
	eventService "github.com/AZMA1N/Debate-Calender/internal/service/event"
	subscriptionService "github.com/AZMA1N/Debate-Calender/internal/service/subscription"
	"github.com/AZMA1N/Debate-Calender/pkg/auth"
	"github.com/AZMA1N/Debate-Calender/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := app.NewLogger(cfg.Log)
	gin.SetMode(gin.ReleaseMode)

	if err := middleware.RegisterValidators(); err != nil {
		logger.Fatal(err, "failed to register validators")
	}

	// Initialize storage
	stores, err := app.OpenStores(cfg.Database, logger)
	if err != nil {
		logger.Fatal(err, "failed to open storage")
	}
	defer stores.Close()

	locker, lockCloser, err := app.Locker(cfg.Redis, logger)
	if err != nil {
		logger.Fatal(err, "failed to connect to Redis")
	}
	defer lockCloser.Close()

	// Initialize services
	eventSvc := eventService.NewService(stores.Events, cfg.Cache.EventsTTL, cfg.Cache.CleanupInterval, logger)
	subscriptionSvc := subscriptionService.NewService(stores.Events, stores.Subscriptions, logger)
	authSvc := authService.NewService(
		cfg.Admin,
		auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour),
		security.NewBcryptHasher(0),
		logger,
	)
	dispatch := app.NewDispatch(cfg, stores.Subscriptions, locker, prometheus.DefaultRegisterer, logger)

	// Initialize handlers
	var db handler.Pinger
	if stores.DB != nil {
		db = stores.DB
	}
	var dispatcher reminderHandler.Dispatcher
	if dispatch.Dispatcher != nil {
		dispatcher = dispatch.Dispatcher
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		authHandler.NewHandler(authSvc),
		eventHandler.NewHandler(eventSvc),
		reminderHandler.NewHandler(dispatcher, subscriptionSvc, reminderHandler.Config{
			CronSecret:     cfg.Cron.Secret,
			ConfigError:    dispatch.ConfigError,
			VAPIDPublicKey: dispatch.VAPIDPublicKey,
		}),
		handler.NewHandler(db, prometheus.DefaultGatherer),
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        cfg.RateLimit.RequestsPerSecond,
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       corsConfig(cfg.Server),
			MetricsPrefix:    cfg.Server.MetricsPrefix,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error(err, "server forced to shutdown")
	}

	logger.Info("server exited properly")
}

func corsConfig(cfg config.ServerConfig) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}
