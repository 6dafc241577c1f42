package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scout/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.RedisURL)

	require.Equal(t, 5, cfg.SearchLimit.MaxRequests)
	require.Equal(t, time.Minute, cfg.SearchLimit.Window)
	require.Equal(t, time.Second, cfg.SearchMinInterval)

	require.Equal(t, 10, cfg.ScrapeConcurrency)
	require.Equal(t, 45*time.Second, cfg.ScrapeBatchTimeout)

	require.Equal(t, "compatible", cfg.AIProvider)
	require.Equal(t, 5000, cfg.MaxSummarizeLength)

	require.Equal(t, 587, cfg.SMTPPort)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCOUT_ADDR", ":9999")
	t.Setenv("SCOUT_LOG_LEVEL", "debug")
	t.Setenv("SEARCH_RATE_LIMIT", "42")
	t.Setenv("SEARCH_RATE_WINDOW", "30s")
	t.Setenv("SEARCH_BLACKLISTED_DOMAINS", "spam.example.net, ads.example.org,")
	t.Setenv("AI_TEMPERATURE", "0.7")

	cfg := config.Load()

	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 42, cfg.SearchLimit.MaxRequests)
	require.Equal(t, 30*time.Second, cfg.SearchLimit.Window)
	require.Equal(t, []string{"spam.example.net", "ads.example.org"}, cfg.SearchBlacklistedDomains)
	require.Equal(t, 0.7, cfg.AITemperature)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SEARCH_RATE_LIMIT", "lots")
	t.Setenv("SEARCH_RATE_WINDOW", "-5s")
	t.Setenv("AI_TEMPERATURE", "warm")

	cfg := config.Load()

	require.Equal(t, 5, cfg.SearchLimit.MaxRequests)
	require.Equal(t, time.Minute, cfg.SearchLimit.Window)
	require.Equal(t, 0.2, cfg.AITemperature)
}
