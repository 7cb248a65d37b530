package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
)

// RunSummary is the listing projection of a stored run.
type RunSummary struct {
	RunID          uuid.UUID              `json:"run_id"`
	DocumentKind   constants.DocumentKind `json:"document_kind"`
	Status         constants.RunStatus    `json:"status"`
	QualityScore   float64                `json:"quality_score"`
	RequiresReview bool                   `json:"requires_review"`
	CreatedAt      time.Time              `json:"created_at"`
}

type RunRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveResult(ctx context.Context, res *entity.ConsolidatedResult) error
	RecordFailure(ctx context.Context, runID uuid.UUID, kind constants.DocumentKind, status constants.RunStatus, detail string) error
	GetResult(ctx context.Context, runID uuid.UUID) (*entity.ConsolidatedResult, constants.RunStatus, error)
	ListRecent(ctx context.Context, limit int) ([]RunSummary, error)
}

type runRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func NewRunRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepository{db: db, dialect: dialect, logger: logger}
}

const runSchema = `
CREATE TABLE IF NOT EXISTS extraction_run (
	id              TEXT PRIMARY KEY,
	document_kind   TEXT NOT NULL,
	processing_mode TEXT,
	status          TEXT NOT NULL,
	quality_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	requires_review BOOLEAN NOT NULL DEFAULT FALSE,
	error_detail    TEXT,
	result_json     TEXT,
	created_at      TEXT NOT NULL
)`

// timeFormat keeps created_at portable: pgx and the sqlite driver disagree
// on how a TIMESTAMP column round-trips, a text column does not.
const timeFormat = time.RFC3339Nano

func (r *runRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, runSchema); err != nil {
		r.logger.Error("repository.runs.ensure_schema", "error", err)
		return common.NewAppError("DB_SCHEMA", "creating extraction_run table", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

// statusFor derives the terminal status of a merged result. Fatal outcomes
// never reach SaveResult; they go through RecordFailure instead.
func statusFor(res *entity.ConsolidatedResult) constants.RunStatus {
	if res.Summary.BatchesFailed > 0 {
		return constants.RunStatusPartial
	}
	return constants.RunStatusDone
}

func (r *runRepository) SaveResult(ctx context.Context, res *entity.ConsolidatedResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return common.NewAppError("DB_ENCODE", "encoding consolidated result", err)
	}
	created := res.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, rebind(r.dialect, `
		INSERT INTO extraction_run
			(id, document_kind, processing_mode, status, quality_score, requires_review, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		res.RunID.String(), string(res.DocumentKind), string(res.ProcessingMode),
		string(statusFor(res)), res.QualityScore, res.RequiresReview, string(payload), created.Format(timeFormat),
	)
	if err != nil {
		r.logger.Error("repository.runs.save", "run_id", res.RunID, "error", err)
		return common.NewAppError("DB_WRITE", "saving extraction run", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

func (r *runRepository) RecordFailure(ctx context.Context, runID uuid.UUID, kind constants.DocumentKind, status constants.RunStatus, detail string) error {
	_, err := r.db.ExecContext(ctx, rebind(r.dialect, `
		INSERT INTO extraction_run (id, document_kind, status, error_detail, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		runID.String(), string(kind), string(status), detail, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		r.logger.Error("repository.runs.record_failure", "run_id", runID, "error", err)
		return common.NewAppError("DB_WRITE", "recording failed run", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

func (r *runRepository) GetResult(ctx context.Context, runID uuid.UUID) (*entity.ConsolidatedResult, constants.RunStatus, error) {
	var (
		status  string
		payload sql.NullString
	)
	err := r.db.QueryRowContext(ctx, rebind(r.dialect,
		`SELECT status, result_json FROM extraction_run WHERE id = ?`),
		runID.String(),
	).Scan(&status, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", common.NewAppError("RUN_NOT_FOUND", "no run with id "+runID.String(), common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("repository.runs.get", "run_id", runID, "error", err)
		return nil, "", common.NewAppError("DB_READ", "loading extraction run", errors.Join(common.ErrDatabase, err))
	}

	if !payload.Valid || payload.String == "" {
		// Fatal runs carry no consolidated result, only a status.
		return nil, constants.RunStatus(status), nil
	}
	var res entity.ConsolidatedResult
	if err := json.Unmarshal([]byte(payload.String), &res); err != nil {
		return nil, "", common.NewAppError("DB_DECODE", "decoding stored result", err)
	}
	return &res, constants.RunStatus(status), nil
}

func (r *runRepository) ListRecent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, rebind(r.dialect, `
		SELECT id, document_kind, status, quality_score, requires_review, created_at
		FROM extraction_run ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		r.logger.Error("repository.runs.list", "error", err)
		return nil, common.NewAppError("DB_READ", "listing extraction runs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s       RunSummary
			id      string
			created string
		)
		if err := rows.Scan(&id, &s.DocumentKind, &s.Status, &s.QualityScore, &s.RequiresReview, &created); err != nil {
			return nil, common.NewAppError("DB_READ", "scanning extraction run row", err)
		}
		if s.RunID, err = uuid.Parse(id); err != nil {
			return nil, common.NewAppError("DB_DECODE", "run id is not a uuid", err)
		}
		if s.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, common.NewAppError("DB_DECODE", "run created_at is not a timestamp", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
