package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/andreibyf/aishacrm-engine/internal/ai"
	"github.com/andreibyf/aishacrm-engine/internal/api"
	"github.com/andreibyf/aishacrm-engine/internal/engine"
	"github.com/andreibyf/aishacrm-engine/internal/executors"
	"github.com/andreibyf/aishacrm-engine/internal/expressions"
	"github.com/andreibyf/aishacrm-engine/internal/logging"
	"github.com/andreibyf/aishacrm-engine/internal/queue"
	"github.com/andreibyf/aishacrm-engine/internal/scheduler"
	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/internal/streaming"
	"github.com/andreibyf/aishacrm-engine/internal/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	providers := buildProviders(ctx, cfg, logger)

	cel, err := expressions.NewCELEngine()
	if err != nil {
		return fmt.Errorf("cel engine: %w", err)
	}

	registry := executors.NewRegistry()
	if err := executors.RegisterBuiltins(registry, s, providers, cel, executors.HTTPConfig{}); err != nil {
		return fmt.Errorf("register executors: %w", err)
	}

	validator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return fmt.Errorf("validator: %w", err)
	}

	hub := streaming.NewMemoryHub()
	runner := engine.NewRunner(s, registry, logger)
	runner.SetEventHub(hub)

	dispatcher := queue.NewDispatcher(s, runner, queue.Config{
		PollInterval: cfg.pollInterval(),
		Concurrency:  cfg.Concurrency,
	}, logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	sched := scheduler.NewScheduler(s, runner, cfg.schedulerTick(), logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer sched.Stop()

	server := api.NewServer(api.Deps{
		Store:     s,
		Runner:    runner,
		Validator: validator,
		Hub:       hub,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}

// buildProviders wires the inference providers for the ai_* nodes. The
// heuristic provider is always the fallback; an MCP sidecar is layered on
// top when configured, and a failed handshake degrades to heuristics.
func buildProviders(ctx context.Context, cfg Config, logger *slog.Logger) *ai.Providers {
	heuristic := ai.NewHeuristicProvider()
	providers := ai.NewProviders(heuristic)

	if cfg.MCPCommand == "" {
		return providers
	}

	mcp, err := ai.NewMCPProvider(ctx, ai.MCPConfig{
		Name:    "mcp",
		Command: cfg.MCPCommand,
		Args:    cfg.MCPArgs,
	}, heuristic)
	if err != nil {
		logger.Warn("mcp provider unavailable, using heuristics", "command", cfg.MCPCommand, "error", err)
		return providers
	}

	providers.Register(mcp)
	return providers
}
