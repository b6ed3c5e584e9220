package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Parse()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "tudogostoso.com.br", cfg.Scrape.AllowedHost)
	require.Equal(t, time.Hour, cfg.Cache.TTL)
	require.Equal(t, 250*time.Millisecond, cfg.Cache.OpTimeout)
	require.Equal(t, 15, cfg.DefaultPerPage)
	require.Len(t, cfg.CORS.AllowedOrigins, 8)
	require.False(t, cfg.Debug())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("EXPOSE_ERRORS", "true")
	t.Setenv("SCRAPE_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://recipes.example.com")

	cfg, err := Parse()
	require.NoError(t, err)
	require.True(t, cfg.Debug())
	require.Equal(t, 5*time.Second, cfg.Scrape.Timeout)
	require.Equal(t, []string{"https://recipes.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestParseDefaultsToProduction(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("EXPOSE_ERRORS", "")
	require.NoError(t, os.Unsetenv("APP_ENV"))
	require.NoError(t, os.Unsetenv("EXPOSE_ERRORS"))

	cfg, err := Parse()
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.AppEnv)
	require.False(t, cfg.Debug(), "без настройки текст внутренних ошибок скрыт")
	require.Equal(t, 5*time.Second, cfg.Cache.InvalidateTimeout)
}
