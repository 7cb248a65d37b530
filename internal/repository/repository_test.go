package repository

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
)

func testRepos(t *testing.T) (RunRepository, ReviewRepository) {
	t.Helper()
	db, err := OpenSQLite("", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runs := NewRunRepository(db, SQLite, nil)
	reviews := NewReviewRepository(db, SQLite, nil)
	require.NoError(t, runs.EnsureSchema(context.Background()))
	require.NoError(t, reviews.EnsureSchema(context.Background()))
	return runs, reviews
}

func sampleResult() *entity.ConsolidatedResult {
	return &entity.ConsolidatedResult{
		RunID:          uuid.New(),
		DocumentKind:   constants.GazetteIssue,
		ProcessingMode: constants.ModeBatch,
		Records: []entity.ExtractedRecord{
			{Category: constants.Dissolution, SubjectName: "Alder Freight Ltd",
				Attributes: map[string]any{"effective_date": "2026-02-01"}},
		},
		DocumentDetails: entity.DocumentDetails{IssueNumber: "4471"},
		Summary:         entity.SummaryStats{TotalRecords: 1, BatchesTotal: 2},
		QualityScore:    44.4,
		RequiresReview:  true,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestSaveAndGetResult(t *testing.T) {
	runs, _ := testRepos(t)
	ctx := context.Background()

	res := sampleResult()
	require.NoError(t, runs.SaveResult(ctx, res))

	got, status, err := runs.GetResult(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusDone, status)
	require.NotNil(t, got)
	assert.Equal(t, res.RunID, got.RunID)
	assert.Equal(t, res.DocumentKind, got.DocumentKind)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "Alder Freight Ltd", got.Records[0].SubjectName)
	assert.Equal(t, "2026-02-01", got.Records[0].Attr("effective_date"))
}

func TestPartialRunGetsPartialStatus(t *testing.T) {
	runs, _ := testRepos(t)
	ctx := context.Background()

	res := sampleResult()
	res.Summary.BatchesFailed = 1
	require.NoError(t, runs.SaveResult(ctx, res))

	_, status, err := runs.GetResult(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusPartial, status)
}

func TestRecordFailureHasNoResult(t *testing.T) {
	runs, _ := testRepos(t)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, runs.RecordFailure(ctx, id, constants.GazetteIssue,
		constants.RunStatusSegmentationFailed, "no recognizable section headings"))

	got, status, err := runs.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, constants.RunStatusSegmentationFailed, status)
}

func TestGetResultNotFound(t *testing.T) {
	runs, _ := testRepos(t)

	_, _, err := runs.GetResult(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListRecent(t *testing.T) {
	runs, _ := testRepos(t)
	ctx := context.Background()

	first := sampleResult()
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	second := sampleResult()
	require.NoError(t, runs.SaveResult(ctx, first))
	require.NoError(t, runs.SaveResult(ctx, second))

	got, err := runs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.RunID, got[0].RunID, "newest first")
	assert.Equal(t, first.RunID, got[1].RunID)
	assert.True(t, got[0].RequiresReview)
}

func TestReviewQueueLifecycle(t *testing.T) {
	_, reviews := testRepos(t)
	ctx := context.Background()

	low := entity.ReviewItem{ItemType: "extraction_run", ItemID: uuid.New(), Reason: "low score", Priority: 2}
	high := entity.ReviewItem{ItemType: "extraction_run", ItemID: uuid.New(), Reason: "partial result", Priority: 1}
	require.NoError(t, reviews.Enqueue(ctx, low))
	require.NoError(t, reviews.Enqueue(ctx, high))

	pending, err := reviews.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, high.ItemID, pending[0].ItemID, "priority 1 first")

	require.NoError(t, reviews.Resolve(ctx, high.ItemID))
	pending, err = reviews.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, low.ItemID, pending[0].ItemID)
}

func TestResolveUnknownItem(t *testing.T) {
	_, reviews := testRepos(t)
	err := reviews.Resolve(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b) VALUES (?, ?)"
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", rebind(Postgres, q))
	assert.Equal(t, q, rebind(SQLite, q))
}
