package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/AZMA1N/Debate-Calender/internal/app"
	"github.com/AZMA1N/Debate-Calender/internal/config"
	"github.com/AZMA1N/Debate-Calender/internal/worker"
	"github.com/AZMA1N/Debate-Calender/pkg/logger"
)

const healthAddr = ":8081"

func setupHealthCheck(logger *logger.Logger, ready func(context.Context) error) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Health check server failed")
		}
	}()
	return srv
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger := app.NewLogger(cfg.Log)

	stores, err := app.OpenStores(cfg.Database, logger)
	if err != nil {
		logger.Fatal(err, "Failed to open storage")
	}
	defer stores.Close()

	if stores.DB == nil {
		logger.Warn("Worker is using the in-memory store and will not see API data")
	}

	locker, lockCloser, err := app.Locker(cfg.Redis, logger)
	if err != nil {
		logger.Fatal(err, "Failed to connect to Redis")
	}
	defer lockCloser.Close()

	dispatch := app.NewDispatch(cfg, stores.Subscriptions, locker, prometheus.DefaultRegisterer, logger)
	if err := dispatch.Ready(); err != nil {
		logger.Fatal(fmt.Errorf("reminder dispatch is not configured: %w", err), "Cannot start worker")
	}

	health := setupHealthCheck(logger, func(ctx context.Context) error {
		if stores.DB == nil {
			return nil
		}
		return stores.DB.PingContext(ctx)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	w := worker.NewReminderWorker(dispatch.Dispatcher, cfg.Reminder.PollInterval, logger)
	if cfg.Reminder.Schedule != "" {
		if err := w.SetSchedule(cfg.Reminder.Schedule); err != nil {
			logger.Fatal(err, "Cannot start worker")
		}
	}
	w.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = health.Shutdown(shutdownCtx)
}
