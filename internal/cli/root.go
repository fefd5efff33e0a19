// Package cli provides the command-line interface for codescout.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codescout-ai/codescout/internal/cache"
	"github.com/codescout-ai/codescout/internal/config"
	"github.com/codescout-ai/codescout/internal/db"
	"github.com/codescout-ai/codescout/internal/engine"
	"github.com/codescout-ai/codescout/internal/llm"
	"github.com/codescout-ai/codescout/internal/metrics"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger and db client
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	dbClient   *db.Client

	// Lazy-initialized LLM components
	embedder  *llm.LangchainEmbedder
	generator *llm.LangchainGenerator
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "codescout",
	Short: "Codebase indexing and question answering",
	Long: `Codescout indexes source repositories into a vector store and answers
questions about them with retrieval-augmented generation.

Indexing runs as queued jobs processed by stateless workers; queries hit
process-local caches before retrieval and generation.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// getProviders lazily initializes the embedding and generation backends.
func getProviders() (*llm.LangchainEmbedder, *llm.LangchainGenerator, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("init embedder: %w", err)
		}
		generator, err = llm.NewGenerator(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("init generator: %w", err)
		}
	}
	return embedder, generator, nil
}

// getEngine wires a query engine with its caches and metric recorder. The
// returned cleanup stops background goroutines and must always be called.
func getEngine() (*engine.Engine, func(), error) {
	emb, gen, err := getProviders()
	if err != nil {
		return nil, nil, err
	}

	caches := cache.NewManager()
	recorder := metrics.NewRecorder(dbClient, logger)
	eng := engine.New(dbClient, emb, gen, caches, recorder, logger, engine.Options{
		TopK:          cfg.RetrievalTopK,
		HistoryWindow: cfg.HistoryWindow,
	})
	cleanup := func() {
		recorder.Close()
		caches.Close()
	}
	return eng, cleanup, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
