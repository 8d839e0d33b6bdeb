package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://u:p@localhost:5432/db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 24*time.Hour, cfg.ActionCacheTTL)
	require.Equal(t, 72*time.Hour, cfg.IdempotencyRetention)
	require.Equal(t, "none", cfg.TraceExporter)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("RATE_LIMIT_PER_MINUTE", "10")
	t.Setenv("ACTION_CACHE_TTL", "-1s")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("ACTION_CACHE_TTL", "soon")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("ACTION_CACHE_TTL", "1h")
	t.Setenv("TRACE_EXPORTER", "zipkin")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "TRACE_EXPORTER")

	t.Setenv("TRACE_EXPORTER", "stdout")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "stdout", cfg.TraceExporter)
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	require.False(t, InTestMode())
}
