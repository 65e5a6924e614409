package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "UPSTREAM_TIMEOUT", "RUN_MIGRATIONS", "DEFAULT_CURRENCY", "CORS_ALLOW_ORIGINS", "PUBLISH_EVENTS"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, ":8084", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.True(t, cfg.RunMigrations)
	assert.True(t, cfg.PublishEvents)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("UPSTREAM_TIMEOUT", "750ms")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("CONSUME_EVENTS", "0")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 750*time.Millisecond, cfg.UpstreamTimeout)
	assert.False(t, cfg.RunMigrations)
	assert.False(t, cfg.ConsumeEvents)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	t.Setenv("RUN_MIGRATIONS", "maybe")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.True(t, cfg.RunMigrations)
}
