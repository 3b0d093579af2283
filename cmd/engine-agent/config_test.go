package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAgentEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AGENT_TOKEN", "LISTEN_ADDR", "HEALTH_ADDR", "DUCKDB_PATH", "LOG_LEVEL", "MAX_MEMORY_GB",
		"MAX_RESULT_ROWS", "LONG_POLL_TIMEOUT", "QUERY_RESULT_TTL", "QUERY_CLEANUP_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadAgentConfig(t *testing.T) {
	t.Run("required_agent_token", func(t *testing.T) {
		clearAgentEnv(t)
		_, err := loadAgentConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AGENT_TOKEN is required")
	})

	t.Run("defaults", func(t *testing.T) {
		clearAgentEnv(t)
		t.Setenv("AGENT_TOKEN", "test-token")

		cfg, err := loadAgentConfig()
		require.NoError(t, err)
		assert.Equal(t, "test-token", cfg.AgentToken)
		assert.Equal(t, ":9443", cfg.ListenAddr)
		assert.Empty(t, cfg.HealthAddr)
		assert.Empty(t, cfg.DatabasePath)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 0, cfg.MaxMemoryGB)
		assert.Zero(t, cfg.ResultTTL, "agent applies its own default")
	})

	t.Run("custom_values", func(t *testing.T) {
		clearAgentEnv(t)
		t.Setenv("AGENT_TOKEN", "secret-token")
		t.Setenv("LISTEN_ADDR", ":7443")
		t.Setenv("HEALTH_ADDR", ":7444")
		t.Setenv("DUCKDB_PATH", "/data/engine.duckdb")
		t.Setenv("MAX_MEMORY_GB", "64")
		t.Setenv("MAX_RESULT_ROWS", "500")
		t.Setenv("LONG_POLL_TIMEOUT", "2s")
		t.Setenv("QUERY_RESULT_TTL", "30m")
		t.Setenv("QUERY_CLEANUP_INTERVAL", "45s")

		cfg, err := loadAgentConfig()
		require.NoError(t, err)
		assert.Equal(t, ":7443", cfg.ListenAddr)
		assert.Equal(t, ":7444", cfg.HealthAddr)
		assert.Equal(t, "/data/engine.duckdb", cfg.DatabasePath)
		assert.Equal(t, 64, cfg.MaxMemoryGB)
		assert.Equal(t, 500, cfg.MaxResultRows)
		assert.Equal(t, 2*time.Second, cfg.LongPollTimeout)
		assert.Equal(t, 30*time.Minute, cfg.ResultTTL)
		assert.Equal(t, 45*time.Second, cfg.CleanupInterval)
	})

	t.Run("invalid_max_memory_gb", func(t *testing.T) {
		clearAgentEnv(t)
		t.Setenv("AGENT_TOKEN", "tok")
		t.Setenv("MAX_MEMORY_GB", "not-a-number")

		_, err := loadAgentConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid MAX_MEMORY_GB")
	})

	t.Run("invalid_query_result_ttl", func(t *testing.T) {
		clearAgentEnv(t)
		t.Setenv("AGENT_TOKEN", "tok")
		t.Setenv("QUERY_RESULT_TTL", "bogus")

		_, err := loadAgentConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid QUERY_RESULT_TTL")
	})

	t.Run("invalid_long_poll_timeout", func(t *testing.T) {
		clearAgentEnv(t)
		t.Setenv("AGENT_TOKEN", "tok")
		t.Setenv("LONG_POLL_TIMEOUT", "bad")

		_, err := loadAgentConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid LONG_POLL_TIMEOUT")
	})
}
