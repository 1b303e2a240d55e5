// Package main provides the entry point for the specfetch MCP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/specfetch/specfetch/internal/config"
	"github.com/specfetch/specfetch/internal/fetch"
	"github.com/specfetch/specfetch/internal/history"
	"github.com/specfetch/specfetch/internal/metrics"
	"github.com/specfetch/specfetch/internal/pipeline"
	"github.com/specfetch/specfetch/internal/resolve"
	"github.com/specfetch/specfetch/internal/server"
	"github.com/specfetch/specfetch/internal/task"
	"github.com/specfetch/specfetch/internal/tools"
)

const version = "0.1.0"

func opCount(op *metrics.OperationSnapshot) int64 {
	if op == nil {
		return 0
	}
	return op.Count
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := cfg.SetupLogger()
	defer func() { _ = cleanup() }()

	logger.Info("specfetch starting",
		"version", version,
		"base_url", cfg.BaseURL,
		"output_dir", cfg.OutputDir,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	client := &http.Client{Timeout: cfg.DownloadTimeout}

	p := &pipeline.Pipeline{
		Resolver: resolve.New(client, cfg.BaseURL, logger),
		Fetcher:  fetch.NewFetcher(client, logger),
		Metrics:  metrics.NewCollector(),
		Logger:   logger,
	}

	// History is bookkeeping; the server runs without it if the database
	// cannot be opened.
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			logger.Warn("history store unavailable", "path", cfg.HistoryDB, "error", err)
		} else {
			p.History = store
			defer func() {
				logger.Info("closing history store")
				_ = store.Close()
			}()
		}
	}

	// Task registry with periodic eviction of finished tasks
	mgr := task.NewManager(logger)
	mgr.StartJanitor(ctx, 0, cfg.TaskRetention)

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup()

	// Register tools
	deps := &tools.Dependencies{
		Pipeline: p,
		Tasks:    mgr,
		Logger:   logger,
	}
	tools.RegisterAll(srv.MCPServer(), deps, &cfg)
	logger.Info("tools registered", "count", 4)

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	snap := p.Metrics.Snapshot()
	logger.Info("session metrics",
		"uptime_s", snap.UptimeSeconds,
		"resolves", opCount(snap.Resolve),
		"downloads", opCount(snap.Download),
		"extracts", opCount(snap.Extract),
	)

	logger.Info("shutdown complete")
}
