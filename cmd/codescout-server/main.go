// Package main provides the HTTP server for codescout.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/codescout-ai/codescout/internal/cache"
	"github.com/codescout-ai/codescout/internal/config"
	"github.com/codescout-ai/codescout/internal/db"
	"github.com/codescout-ai/codescout/internal/engine"
	"github.com/codescout-ai/codescout/internal/indexer"
	"github.com/codescout-ai/codescout/internal/llm"
	"github.com/codescout-ai/codescout/internal/metrics"
	"github.com/codescout-ai/codescout/internal/scheduler"
	"github.com/codescout-ai/codescout/internal/server"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()
	logger, logCleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = logCleanup() }()

	port, err := strconv.Atoi(cfg.ServerPort)
	if err != nil {
		logger.Error("invalid server port", "port", cfg.ServerPort, "error", err)
		os.Exit(1)
	}

	logger.Info("starting codescout-server", "port", port)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		cancel()
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
		cancel()
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("CODESCOUT_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			cancel()
			logger.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}
	cancel()
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	generator, err := llm.NewGenerator(cfg)
	if err != nil {
		logger.Error("failed to create generator", "error", err)
		os.Exit(1)
	}

	caches := cache.NewManager()
	defer caches.Close()
	recorder := metrics.NewRecorder(dbClient, logger)
	defer recorder.Close()

	eng := engine.New(dbClient, embedder, generator, caches, recorder, logger, engine.Options{
		TopK:          cfg.RetrievalTopK,
		HistoryWindow: cfg.HistoryWindow,
	})
	worker := scheduler.New(dbClient, indexer.NewLocal(dbClient, embedder, logger), cfg.LeaseDuration, logger)
	aggregator := metrics.NewAggregator(dbClient, cfg.MonthlyBudgetUsd, cfg.BudgetAlertThresholdP)

	srv := server.New(eng, worker, aggregator, logger, port)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
