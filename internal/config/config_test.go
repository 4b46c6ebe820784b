package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 60, cfg.Reminder.DefaultOffsetMinutes)
	assert.Equal(t, time.Minute, cfg.Reminder.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Reminder.ClaimTTL)
	assert.Equal(t, 5, cfg.Reminder.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.Reminder.BreakerTimeout)
	assert.Empty(t, cfg.Reminder.Schedule)
	assert.Equal(t, "/", cfg.Push.FallbackURL)
	assert.Equal(t, time.UTC, cfg.Reminder.Location())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
smtp:
  host: smtp.example.com
  from: club@example.com
reminder:
  time_zone: America/New_York
`)
	t.Setenv("CRON_SECRET", "from-env")
	t.Setenv("SMTP_HOST", "mail.internal")

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.Cron.Secret)
	assert.Equal(t, "mail.internal", cfg.SMTP.Host)
	assert.Equal(t, "club@example.com", cfg.SMTP.From)
	assert.Equal(t, "America/New_York", cfg.Reminder.Location().String())
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := load(viper.New(), writeConfig(t, "reminder:\n  time_zone: Mars/Olympus\n"))
	assert.Error(t, err)

	_, err = load(viper.New(), writeConfig(t, "database:\n  driver: sqlite\n"))
	assert.Error(t, err)
}

func TestMissingDispatchSettings(t *testing.T) {
	cfg := &Config{}
	assert.ElementsMatch(t, []string{
		"cron.secret",
		"smtp.host",
		"smtp.from",
		"push.vapid_public_key",
		"push.vapid_private_key",
		"push.subject",
	}, cfg.MissingDispatchSettings())

	cfg.Cron.Secret = "s"
	cfg.SMTP = SMTPConfig{Host: "h", From: "f"}
	cfg.Push = PushConfig{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv", Subject: "mailto:a@b.c"}
	assert.Empty(t, cfg.MissingDispatchSettings())
}
