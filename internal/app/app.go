// Package app assembles the pieces shared by the API server and the worker.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/AZMA1N/Debate-Calender/internal/config"
	"github.com/AZMA1N/Debate-Calender/internal/email"
	"github.com/AZMA1N/Debate-Calender/internal/push"
	"github.com/AZMA1N/Debate-Calender/internal/repository"
	"github.com/AZMA1N/Debate-Calender/internal/repository/memory"
	"github.com/AZMA1N/Debate-Calender/internal/repository/postgres"
	"github.com/AZMA1N/Debate-Calender/internal/service/reminder"
	"github.com/AZMA1N/Debate-Calender/pkg/circuitbreaker"
	"github.com/AZMA1N/Debate-Calender/pkg/lock"
	redislock "github.com/AZMA1N/Debate-Calender/pkg/lock/redis"
	"github.com/AZMA1N/Debate-Calender/pkg/logger"
	"github.com/AZMA1N/Debate-Calender/pkg/metrics"
)

// NewLogger builds the process logger and installs it as zerolog's global
// logger, which the HTTP middleware writes to.
func NewLogger(cfg config.LogConfig) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    strings.EqualFold(cfg.Format, "console"),
	})
	log.Logger = l.Zerolog()
	return l
}

// Stores is the storage selected by database.driver.
type Stores struct {
	Events        repository.EventRepository
	Subscriptions repository.SubscriptionRepository
	// DB is nil for the memory driver.
	DB *sqlx.DB
}

func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func OpenStores(cfg config.DatabaseConfig, log *logger.Logger) (*Stores, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("Using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return &Stores{Events: store, Subscriptions: store}, nil
	case "postgres", "":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		base := postgres.NewBaseRepository(db)
		return &Stores{
			Events:        postgres.NewEventRepository(base),
			Subscriptions: postgres.NewSubscriptionRepository(base),
			DB:            db,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// Locker returns the Redis run lock, or a no-op when redis.url is empty.
// The closer is always safe to call.
func Locker(cfg config.RedisConfig, log *logger.Logger) (lock.Locker, io.Closer, error) {
	if cfg.URL == "" {
		log.Info("Redis not configured, dispatch lock disabled")
		return lock.Nop{}, nopCloser{}, nil
	}

	zl := log.Zerolog()
	locker, err := redislock.NewRedisLocker(redislock.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, &zl)
	if err != nil {
		return nil, nil, err
	}
	return locker, locker, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Dispatch is the reminder dispatcher plus the reason it cannot run, if any.
type Dispatch struct {
	Dispatcher     *reminder.Dispatcher
	ConfigError    error
	VAPIDPublicKey string
}

// NewDispatch builds the adapters once. Missing SMTP, VAPID or cron
// settings do not stop the process; they surface as ConfigError.
func NewDispatch(cfg *config.Config, subs repository.SubscriptionRepository, locker lock.Locker,
	reg prometheus.Registerer, log *logger.Logger) *Dispatch {
	d := &Dispatch{VAPIDPublicKey: cfg.Push.VAPIDPublicKey}

	if missing := cfg.MissingDispatchSettings(); len(missing) > 0 {
		d.ConfigError = fmt.Errorf("missing settings: %s", strings.Join(missing, ", "))
		log.Warn("Reminder dispatch is not configured", "missing", strings.Join(missing, ","))
		return d
	}

	emailSender, err := email.NewSMTPSender(cfg.SMTP)
	if err != nil {
		d.ConfigError = err
		return d
	}
	pushSender, err := push.NewWebPushSender(cfg.Push)
	if err != nil {
		d.ConfigError = err
		return d
	}

	breaker := func(name string) circuitbreaker.Settings {
		return circuitbreaker.Settings{
			Name:        name,
			MaxFailures: uint32(cfg.Reminder.BreakerFailures),
			Timeout:     cfg.Reminder.BreakerTimeout,
			OnStateChange: func(name, from, to string) {
				log.Warn("Circuit breaker changed state", "breaker", name, "from", from, "to", to)
			},
		}
	}

	d.Dispatcher = reminder.NewDispatcher(
		subs,
		email.NewBreakerSender(emailSender, circuitbreaker.NewCircuitBreaker(breaker("smtp"))),
		push.NewBreakerSender(pushSender, breaker("push")),
		reminder.Config{
			DefaultOffsetMinutes: cfg.Reminder.DefaultOffsetMinutes,
			Location:             cfg.Reminder.Location(),
			FallbackURL:          cfg.Push.FallbackURL,
			ClaimTTL:             cfg.Reminder.ClaimTTL,
			LockTTL:              cfg.Reminder.LockTTL,
		},
		locker,
		metrics.NewMetrics(cfg.Server.MetricsPrefix, reg),
		log.WithFields(map[string]interface{}{"component": "reminder"}),
	)
	return d
}

// Ready reports whether dispatch can run.
func (d *Dispatch) Ready() error {
	if d.ConfigError != nil {
		return d.ConfigError
	}
	if d.Dispatcher == nil {
		return errors.New("dispatcher not initialised")
	}
	return nil
}
