package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/export"
	"github.com/caselode/filings-extractor/internal/llm"
	"github.com/caselode/filings-extractor/internal/llm/openai"
	"github.com/caselode/filings-extractor/internal/pipeline"
	"github.com/caselode/filings-extractor/internal/repository"
	"github.com/caselode/filings-extractor/internal/segment"
	"github.com/caselode/filings-extractor/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("extractd.config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		logger.Error("extractd.config", "error", "DB_URL env var is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider(cfg, logger)
	if err != nil {
		logger.Error("extractd.provider", "error", err)
		os.Exit(1)
	}

	registry, err := segment.LoadRegistry(cfg.Budget.TemplatePath)
	if err != nil {
		logger.Error("extractd.templates", "error", err)
		os.Exit(1)
	}

	db, pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("extractd.db", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, pool, logger)
	if err := repository.HealthCheck(ctx, db); err != nil {
		logger.Error("extractd.db.health", "error", err)
		os.Exit(1)
	}

	runs := repository.NewRunRepository(db, repository.Postgres, logger)
	reviews := repository.NewReviewRepository(db, repository.Postgres, logger)
	if err := runs.EnsureSchema(ctx); err != nil {
		logger.Error("extractd.db.schema", "error", err)
		os.Exit(1)
	}
	if err := reviews.EnsureSchema(ctx); err != nil {
		logger.Error("extractd.db.schema", "error", err)
		os.Exit(1)
	}

	processor := pipeline.NewProcessor(logger, cfg.Budget, provider, registry)
	exporter := export.NewService(runs, logger)
	srv := server.NewServer(processor, runs, reviews, exporter, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(cfg.Server.HTTPAddr) }()
	logger.Info("extractd.serving", "addr", cfg.Server.HTTPAddr, "provider", provider.Name())

	select {
	case err := <-errCh:
		logger.Error("extractd.serve", "error", err)
		os.Exit(1)
	case <-ctx.Done():
		logger.Info("extractd.shutdown")
	}
}

func buildProvider(cfg *common.Config, logger *slog.Logger) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger), nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR",
			"unknown LLM_PROVIDER "+cfg.LLM.Provider, common.ErrInvalidInput)
	}
}
