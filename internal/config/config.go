package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Cron      CronConfig      `mapstructure:"cron"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Push      PushConfig      `mapstructure:"push"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MetricsPrefix  string        `mapstructure:"metrics_prefix"`
}

// DatabaseConfig selects the store. Driver "memory" keeps everything in
// process and ignores the connection settings.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig is optional; an empty URL disables the dispatch run lock.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// AdminConfig holds the single club administrator account.
type AdminConfig struct {
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
}

// CronConfig guards the reminder dispatch trigger.
type CronConfig struct {
	Secret string `mapstructure:"secret"`
}

type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type PushConfig struct {
	VAPIDPublicKey  string        `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string        `mapstructure:"vapid_private_key"`
	Subject         string        `mapstructure:"subject"`
	FallbackURL     string        `mapstructure:"fallback_url"`
	TTLSeconds      int           `mapstructure:"ttl_seconds"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type ReminderConfig struct {
	DefaultOffsetMinutes int           `mapstructure:"default_offset_minutes"`
	TimeZone             string        `mapstructure:"time_zone"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	ClaimTTL             time.Duration `mapstructure:"claim_ttl"`
	LockTTL              time.Duration `mapstructure:"lock_ttl"`
	// BreakerFailures consecutive send failures open a channel's breaker
	// for BreakerTimeout.
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
	// Schedule is an optional cron expression that overrides PollInterval
	// for the worker.
	Schedule string `mapstructure:"schedule"`
}

type CacheConfig struct {
	EventsTTL       time.Duration `mapstructure:"events_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]interface{}{
	"server.port":            8080,
	"server.read_timeout":    "15s",
	"server.write_timeout":   "30s",
	"server.allowed_origins": []string{"*"},
	"server.metrics_prefix":  "debate_calendar",

	"database.driver":         "postgres",
	"database.host":           "localhost",
	"database.port":           5432,
	"database.user":           "postgres",
	"database.password":       "",
	"database.name":           "debate_calendar",
	"database.sslmode":        "disable",
	"database.max_open_conns": 10,
	"database.max_idle_conns": 5,

	"redis.url":            "",
	"redis.max_retries":    3,
	"redis.retry_backoff":  "100ms",
	"redis.pool_size":      10,
	"redis.min_idle_conns": 1,

	"jwt.secret":       "",
	"jwt.expiry_hours": 24,

	"admin.email":         "",
	"admin.password_hash": "",

	"cron.secret": "",

	"smtp.host":     "",
	"smtp.port":     587,
	"smtp.username": "",
	"smtp.password": "",
	"smtp.from":     "",
	"smtp.timeout":  "10s",

	"push.vapid_public_key":  "",
	"push.vapid_private_key": "",
	"push.subject":           "",
	"push.fallback_url":      "/",
	"push.ttl_seconds":       3600,
	"push.timeout":           "10s",

	"reminder.default_offset_minutes": 60,
	"reminder.time_zone":              "UTC",
	"reminder.poll_interval":          "1m",
	"reminder.schedule":               "",
	"reminder.claim_ttl":              "10m",
	"reminder.lock_ttl":               "5m",
	"reminder.breaker_failures":       5,
	"reminder.breaker_timeout":        "30s",

	"cache.events_ttl":       "1m",
	"cache.cleanup_interval": "5m",

	"rate_limit.enabled":             true,
	"rate_limit.requests_per_second": 5,
	"rate_limit.burst":               10,

	"log.level":  "info",
	"log.format": "json",
}

// LoadConfig reads config.yaml (or $CONFIG_FILE) and applies environment
// overrides, e.g. CRON_SECRET or SMTP_HOST. A missing file is not an error.
func LoadConfig() (*Config, error) {
	return load(viper.New(), os.Getenv("CONFIG_FILE"))
}

func load(v *viper.Viper, file string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	switch config.Database.Driver {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown database.driver %q", config.Database.Driver)
	}

	if _, err := time.LoadLocation(config.Reminder.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid reminder.time_zone %q: %w", config.Reminder.TimeZone, err)
	}

	return &config, nil
}

// Location returns the zone reminder times are rendered in.
func (c *ReminderConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MissingDispatchSettings lists the settings the reminder run cannot work
// without. An empty result means dispatch is fully configured.
func (c *Config) MissingDispatchSettings() []string {
	var missing []string
	check := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	check("cron.secret", c.Cron.Secret)
	check("smtp.host", c.SMTP.Host)
	check("smtp.from", c.SMTP.From)
	check("push.vapid_public_key", c.Push.VAPIDPublicKey)
	check("push.vapid_private_key", c.Push.VAPIDPrivateKey)
	check("push.subject", c.Push.Subject)
	return missing
}
