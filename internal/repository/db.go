// Package repository persists extraction runs and the review queue. It runs
// against Postgres in the service and against an in-memory SQLite database
// in the one-shot CLI, so queries are written with ? placeholders and
// rebound per dialect.
package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/caselode/filings-extractor/internal/common"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Open creates a pgx pool and wraps it as *sql.DB.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*sql.DB, *pgxpool.Pool, error) {
	logger.Info("repository.open", "dsn", cfg.DSN)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("repository.open.parse_config", "error", err)
		return nil, nil, common.NewAppError("DB_CONFIG", "invalid database DSN", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "filings-extractor"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("repository.open.connect", "error", err)
		return nil, nil, common.NewAppError("DB_CONNECT", "failed to connect to database", err)
	}

	logger.Info("repository.open.ok")
	return stdlib.OpenDBFromPool(pool), pool, nil
}

// OpenSQLite opens an embedded SQLite database, in memory when path is
// empty. A single connection is forced so an in-memory database is not
// silently duplicated per pooled connection.
func OpenSQLite(path string, logger *slog.Logger) (*sql.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("repository.open_sqlite", "dsn", dsn, "error", err)
		return nil, common.NewAppError("DB_CONNECT", "failed to open sqlite database", err)
	}
	db.SetMaxOpenConns(1)
	logger.Info("repository.open_sqlite.ok", "dsn", dsn)
	return db, nil
}

// Close closes the database handles gracefully.
func Close(db *sql.DB, pool *pgxpool.Pool, logger *slog.Logger) {
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("repository.close", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("repository.close.ok")
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $1..$n for Postgres. Queries in this
// package never embed a literal question mark.
func rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
