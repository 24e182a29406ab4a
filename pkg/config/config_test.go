package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BASE_URL", "https://qr.example.com/")
	t.Setenv("ALLOWED_EMAILS", "a@example.com, b@example.com,,")
	t.Setenv("SCAN_WORKERS", "not-a-number")
	t.Setenv("MONITOR_INTERVAL", "90s")

	cfg := Load()

	assert.Equal(t, "https://qr.example.com", cfg.BaseURL)
	assert.Equal(t, "https://qr.example.com/", cfg.FallbackURL)
	assert.Equal(t, "https://qr.example.com/auth/google/callback", cfg.GoogleRedirectURL)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AllowedEmails)
	assert.Equal(t, 2, cfg.ScanWorkers)
	assert.Equal(t, 90*time.Second, cfg.MonitorInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("FALLBACK_URL", "https://example.com/missing")
	t.Setenv("REDIRECT_RATE", "0.5")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://example.com/missing", cfg.FallbackURL)
	assert.Equal(t, 0.5, cfg.RedirectRate)
}
