package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
)

type ReviewRepository interface {
	EnsureSchema(ctx context.Context) error
	Enqueue(ctx context.Context, item entity.ReviewItem) error
	ListPending(ctx context.Context, limit int) ([]entity.ReviewItem, error)
	Resolve(ctx context.Context, itemID uuid.UUID) error
}

type reviewRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func NewReviewRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) ReviewRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &reviewRepository{db: db, dialect: dialect, logger: logger}
}

const reviewSchema = `
CREATE TABLE IF NOT EXISTS review_queue (
	item_id    TEXT PRIMARY KEY,
	item_type  TEXT NOT NULL,
	reason     TEXT,
	priority   INTEGER NOT NULL DEFAULT 2,
	resolved   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TEXT NOT NULL
)`

func (r *reviewRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, reviewSchema); err != nil {
		r.logger.Error("repository.review.ensure_schema", "error", err)
		return common.NewAppError("DB_SCHEMA", "creating review_queue table", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

func (r *reviewRepository) Enqueue(ctx context.Context, item entity.ReviewItem) error {
	_, err := r.db.ExecContext(ctx, rebind(r.dialect, `
		INSERT INTO review_queue (item_id, item_type, reason, priority, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		item.ItemID.String(), item.ItemType, item.Reason, item.Priority, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		r.logger.Error("repository.review.enqueue", "item_id", item.ItemID, "error", err)
		return common.NewAppError("DB_WRITE", "enqueueing review item", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("repository.review.enqueued", "item_id", item.ItemID, "priority", item.Priority)
	return nil
}

func (r *reviewRepository) ListPending(ctx context.Context, limit int) ([]entity.ReviewItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, rebind(r.dialect, `
		SELECT item_id, item_type, reason, priority
		FROM review_queue WHERE resolved = FALSE
		ORDER BY priority ASC, created_at ASC LIMIT ?`), limit)
	if err != nil {
		r.logger.Error("repository.review.list", "error", err)
		return nil, common.NewAppError("DB_READ", "listing review queue", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []entity.ReviewItem
	for rows.Next() {
		var (
			item entity.ReviewItem
			id   string
		)
		if err := rows.Scan(&id, &item.ItemType, &item.Reason, &item.Priority); err != nil {
			return nil, common.NewAppError("DB_READ", "scanning review item", err)
		}
		if item.ItemID, err = uuid.Parse(id); err != nil {
			return nil, common.NewAppError("DB_DECODE", "review item id is not a uuid", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *reviewRepository) Resolve(ctx context.Context, itemID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, rebind(r.dialect,
		`UPDATE review_queue SET resolved = TRUE WHERE item_id = ?`), itemID.String())
	if err != nil {
		r.logger.Error("repository.review.resolve", "item_id", itemID, "error", err)
		return common.NewAppError("DB_WRITE", "resolving review item", errors.Join(common.ErrDatabase, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewAppError("REVIEW_NOT_FOUND", "no review item with id "+itemID.String(), common.ErrNotFound)
	}
	return nil
}
