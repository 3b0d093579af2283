package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// AgentConfig holds configuration for the engine agent, loaded from environment variables.
type AgentConfig struct {
	AgentToken      string
	ListenAddr      string // gRPC engine service
	HealthAddr      string // HTTP /health; empty disables it
	DatabasePath    string // DuckDB file; empty means in-memory
	MaxMemoryGB     int
	LogLevel        string
	LongPollTimeout time.Duration
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxResultRows   int
}

func loadAgentConfig() (*AgentConfig, error) {
	cfg := &AgentConfig{
		AgentToken:   os.Getenv("AGENT_TOKEN"),
		ListenAddr:   os.Getenv("LISTEN_ADDR"),
		HealthAddr:   os.Getenv("HEALTH_ADDR"),
		DatabasePath: os.Getenv("DUCKDB_PATH"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
	}
	if v := os.Getenv("MAX_MEMORY_GB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_MEMORY_GB: %w", err)
		}
		cfg.MaxMemoryGB = n
	}
	if v := os.Getenv("MAX_RESULT_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_RESULT_ROWS: %w", err)
		}
		cfg.MaxResultRows = n
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LONG_POLL_TIMEOUT", &cfg.LongPollTimeout},
		{"QUERY_RESULT_TTL", &cfg.ResultTTL},
		{"QUERY_CLEANUP_INTERVAL", &cfg.CleanupInterval},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if cfg.AgentToken == "" {
		return nil, fmt.Errorf("AGENT_TOKEN is required")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9443"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}
