// Package main is the entry point for the engine agent binary.
// The agent opens a DuckDB database and serves the engine RPC service over
// gRPC, plus an optional GET /health endpoint over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"sql-gateway/internal/agent"
	"sql-gateway/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadAgentConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	db, err := sql.Open("duckdb", cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.MaxMemoryGB > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET max_memory='%dGB'", cfg.MaxMemoryGB)); err != nil {
			return fmt.Errorf("set max_memory: %w", err)
		}
		logger.Info("memory limit set", "max_memory_gb", cfg.MaxMemoryGB)
	}

	srv := agent.NewServer(agent.ServerConfig{
		DB:              db,
		AgentToken:      cfg.AgentToken,
		Logger:          logger.With("component", "engine-agent"),
		LongPollTimeout: cfg.LongPollTimeout,
		ResultTTL:       cfg.ResultTTL,
		CleanupInterval: cfg.CleanupInterval,
		MaxResultRows:   cfg.MaxResultRows,
	})
	if err := srv.Start(cfg.ListenAddr); err != nil {
		return fmt.Errorf("start engine service: %w", err)
	}
	defer srv.Stop()
	logger.Info("engine agent listening", "addr", srv.Addr())

	if cfg.HealthAddr == "" {
		<-ctx.Done()
		logger.Info("shutting down agent")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", srv.HealthHandler())
	health := &http.Server{
		Addr:              cfg.HealthAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down agent")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = health.Shutdown(shutdownCtx)
	}()

	logger.Info("health endpoint listening", "addr", cfg.HealthAddr)
	if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
