package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/budget"
	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
	"github.com/caselode/filings-extractor/internal/llm"
	"github.com/caselode/filings-extractor/internal/quality"
	"github.com/caselode/filings-extractor/internal/segment"
)

// Processor runs one document end to end. Everything it touches is created
// fresh per run and discarded afterwards; nothing is shared across runs.
type Processor struct {
	Logger    *slog.Logger
	Budget    common.BudgetConfig
	Estimator budget.TokenEstimator
	Registry  *segment.Registry
	Extractor *Extractor
	Segmenter *segment.Segmenter
}

func NewProcessor(logger *slog.Logger, cfg common.BudgetConfig, provider llm.Provider, registry *segment.Registry) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	est := budget.NewHeuristicEstimator(cfg.BytesPerToken)
	return &Processor{
		Logger:    logger,
		Budget:    cfg,
		Estimator: est,
		Registry:  registry,
		Extractor: NewExtractor(provider, cfg, est, logger),
		Segmenter: segment.NewSegmenter(est, logger),
	}
}

// Run executes the full pipeline for one document and returns its
// consolidated, scored result. Partial batch failures still produce a
// result; the only fatal outcomes are segmentation failure, text-acquisition
// failure, and cancellation of ctx (the host deadline).
func (p *Processor) Run(ctx context.Context, doc entity.Document) (*entity.ConsolidatedResult, error) {
	start := time.Now()

	instructions := llm.BuildExtractionInstructions(doc.Kind, doc.Metadata, "")
	est := budget.EstimateDocument(p.Estimator, doc, instructions)
	mode := budget.SelectMode(est, p.Budget.SinglePassCeiling, p.Budget.SafetyMargin)

	p.Logger.Info("pipeline.run.start",
		"run_id", doc.ID,
		"kind", doc.Kind,
		"document_bytes", len(doc.Bytes),
		"estimated_input_tokens", est.InputTokens,
		"estimated_prompt_tokens", est.PromptTokens,
		"mode", mode,
	)

	var (
		results       []BatchResult
		sectionsFound int
	)
	switch mode {
	case constants.ModeSinglePass:
		outcome := p.Extractor.ExtractDocument(ctx, doc, est)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = []BatchResult{{
			Batch:   segment.Batch{Index: 0, EstimatedTokens: est.InputTokens},
			Outcome: outcome,
		}}

	case constants.ModeBatch:
		var err error
		results, sectionsFound, err = p.runBatches(ctx, doc, est)
		if err != nil {
			return nil, err
		}
	}

	res := MergeResults(doc, mode, results, sectionsFound)
	quality.PolicyFor(doc.Kind).Apply(res, p.Budget.ReviewThreshold)

	p.Logger.Info("pipeline.run.done",
		"run_id", doc.ID,
		"mode", mode,
		"records", res.Summary.TotalRecords,
		"batches_total", res.Summary.BatchesTotal,
		"batches_failed", res.Summary.BatchesFailed,
		"quality_score", res.QualityScore,
		"requires_review", res.RequiresReview,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// runBatches is the batch-mode path: acquire plain text, segment it against
// the kind's template, group sections under the batch budget, then drive the
// extraction calls strictly sequentially.
func (p *Processor) runBatches(ctx context.Context, doc entity.Document, est entity.SizeEstimate) ([]BatchResult, int, error) {
	text, err := p.Extractor.AcquireText(ctx, doc, est)
	if err != nil {
		return nil, 0, err
	}

	tpl, ok := p.Registry.TemplateFor(doc.Kind)
	if !ok {
		return nil, 0, common.NewAppError("CONFIG_ERROR",
			"no section template registered for kind "+string(doc.Kind), common.ErrInvalidInput)
	}
	sections, err := p.Segmenter.Split(text, tpl)
	if err != nil {
		return nil, 0, err
	}

	batches := segment.GroupIntoBatches(sections, p.Budget.MaxBatchTokens)
	for _, b := range batches {
		if b.Oversized(p.Budget.MaxBatchTokens) {
			// Accepted risk: a lone oversized section is sent anyway rather
			// than dropped. The provider may truncate it.
			p.Logger.Warn("pipeline.batch.oversized",
				"run_id", doc.ID,
				"batch_index", b.Index,
				"estimated_tokens", b.EstimatedTokens,
				"max_batch_tokens", p.Budget.MaxBatchTokens,
			)
		}
	}

	results := make([]BatchResult, 0, len(batches))
	for i, b := range batches {
		if i > 0 {
			// Inter-call pause exists only to respect the provider's rate
			// limits; there is no ordering dependency between batches.
			if err := sleepCtx(ctx, p.Budget.InterCallDelay); err != nil {
				return nil, 0, err
			}
		}
		outcome := p.Extractor.ExtractText(ctx, doc, b.Text(), b.EstimatedTokens, b.SectionNames())
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		p.Logger.Info("pipeline.batch.done",
			"run_id", doc.ID,
			"batch_index", b.Index,
			"sections", len(b.Sections),
			"estimated_tokens", b.EstimatedTokens,
			"status", outcome.Status,
		)
		results = append(results, BatchResult{Batch: b, Outcome: outcome})
	}
	return results, len(sections), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
