package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
	"github.com/caselode/filings-extractor/internal/export"
	"github.com/caselode/filings-extractor/internal/llm/openai"
	"github.com/caselode/filings-extractor/internal/pipeline"
	"github.com/caselode/filings-extractor/internal/repository"
	"github.com/caselode/filings-extractor/internal/segment"
)

// printError prints to stderr, falling back to stdout if stderr fails.
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file    = flag.String("file", "", "path to the PDF to extract (required)")
		kindStr = flag.String("kind", "", "document kind: CASE_FILING or GAZETTE_ISSUE (required)")
		inmem   = flag.Bool("inmem", true, "use an in-memory SQLite database instead of DB_URL")
		out     = flag.String("out", "", "write the records workbook to this XLSX path (optional)")
		issue   = flag.String("issue", "", "gazette issue number hint")
		caseNo  = flag.String("case", "", "court case number hint")
	)
	flag.Parse()

	if *file == "" || *kindStr == "" {
		printError("Error: -file and -kind are required\n")
		flag.Usage()
		os.Exit(1)
	}
	kind, ok := constants.ParseKind(*kindStr)
	if !ok {
		printError("Error: unknown kind %q, expected one of %s\n", *kindStr, strings.Join(constants.DocumentKinds, ", "))
		os.Exit(1)
	}

	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		printError("Error: reading %s: %v\n", *file, err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := run(ctx, cfg, logger, raw, kind, *file, *issue, *caseNo, *inmem, *out); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, raw []byte, kind constants.DocumentKind, path, issue, caseNo string, inmem bool, out string) error {
	provider := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	registry, err := segment.LoadRegistry(cfg.Budget.TemplatePath)
	if err != nil {
		return err
	}

	var (
		db      *sql.DB
		dialect repository.Dialect
	)
	if inmem {
		db, err = repository.OpenSQLite("", logger)
		if err != nil {
			return err
		}
		defer db.Close()
		dialect = repository.SQLite
	} else {
		sqlDB, pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer repository.Close(sqlDB, pool, logger)
		db, dialect = sqlDB, repository.Postgres
	}

	runs := repository.NewRunRepository(db, dialect, logger)
	if err := runs.EnsureSchema(ctx); err != nil {
		return err
	}

	doc := entity.Document{
		ID:    uuid.New(),
		Kind:  kind,
		Bytes: raw,
		Metadata: entity.DocumentMetadata{
			IssueNumber: issue,
			CaseNumber:  caseNo,
			SourceName:  filepath.Base(path),
		},
	}

	processor := pipeline.NewProcessor(logger, cfg.Budget, provider, registry)
	res, err := processor.Run(ctx, doc)
	if err != nil {
		return err
	}
	if err := runs.SaveResult(ctx, res); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if out != "" {
		blob, err := export.NewService(runs, logger).ExportRunXLSX(ctx, res.RunID)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, blob, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", out)
	}
	return nil
}
