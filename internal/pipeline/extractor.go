// Package pipeline drives one document through the context-budget-aware
// extraction flow: estimate, mode selection, optional segmentation and
// batching, sequential provider calls, merge and scoring.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/budget"
	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
	"github.com/caselode/filings-extractor/internal/llm"
)

// Envelope is the parsed payload of one successful extraction call.
type Envelope struct {
	DocumentDetails entity.DocumentDetails   `json:"document_details"`
	Records         []entity.ExtractedRecord `json:"records"`
}

// CallOutcome is the result of one extraction call. Provider failures and
// parse failures are encoded here rather than returned as errors: both are
// local to the call and must not stop later batches.
type CallOutcome struct {
	Status      constants.BatchCallStatus
	Payload     *Envelope
	RawText     string
	Usage       llm.Usage
	ErrorDetail string
}

// Extractor is the extraction client: it computes the output allowance for
// one call, invokes the provider, and validates the structured response.
type Extractor struct {
	Provider  llm.Provider
	Budget    common.BudgetConfig
	Estimator budget.TokenEstimator
	Logger    *slog.Logger
}

func NewExtractor(provider llm.Provider, cfg common.BudgetConfig, est budget.TokenEstimator, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{Provider: provider, Budget: cfg, Estimator: est, Logger: logger}
}

// allowance computes max_output_tokens for a call whose input side is
// estimated at inputTokens. Never hard-coded: smaller inputs get more
// headroom, larger inputs get the floor.
func (e *Extractor) allowance(inputTokens int) int {
	return budget.OutputAllowance(
		inputTokens,
		e.Budget.ContextWindow,
		e.Budget.SafetyMargin,
		e.Budget.MinOutputTokens,
		e.Budget.MaxOutputTokens,
	)
}

// ExtractDocument runs a single-pass structured extraction over the whole
// document.
func (e *Extractor) ExtractDocument(ctx context.Context, doc entity.Document, est entity.SizeEstimate) CallOutcome {
	instructions := llm.BuildExtractionInstructions(doc.Kind, doc.Metadata, "")
	resp, err := e.Provider.ReadDocument(ctx, llm.DocumentRequest{
		Instructions:    instructions,
		FileName:        doc.Metadata.SourceName,
		DocumentBytes:   doc.Bytes,
		MaxOutputTokens: e.allowance(est.Total()),
	})
	if err != nil {
		e.Logger.Error("extract.document.provider_error", "run_id", doc.ID, "error", err)
		return CallOutcome{Status: constants.BatchProviderError, ErrorDetail: err.Error()}
	}
	return e.decode(doc.Kind, resp)
}

// ExtractText runs a structured extraction over one batch's text.
// sectionNames scopes the instructions so the model does not invent records
// from sections it cannot see.
func (e *Extractor) ExtractText(ctx context.Context, doc entity.Document, text string, estTokens int, sectionNames []string) CallOutcome {
	instructions := llm.BuildExtractionInstructions(doc.Kind, doc.Metadata, llm.BatchScopeNote(sectionNames))
	promptTokens := e.Estimator.EstimateText(instructions)
	resp, err := e.Provider.CompleteText(ctx, llm.TextRequest{
		Instructions:    instructions,
		Text:            text,
		MaxOutputTokens: e.allowance(estTokens + promptTokens),
	})
	if err != nil {
		e.Logger.Error("extract.text.provider_error", "run_id", doc.ID, "error", err)
		return CallOutcome{Status: constants.BatchProviderError, ErrorDetail: err.Error()}
	}
	return e.decode(doc.Kind, resp)
}

// AcquireText obtains the document's plain text ahead of segmentation.
// Unlike per-batch extraction, a failure here is fatal for the run: without
// text there are no boundaries to batch.
func (e *Extractor) AcquireText(ctx context.Context, doc entity.Document, est entity.SizeEstimate) (string, error) {
	resp, err := e.Provider.ReadDocument(ctx, llm.DocumentRequest{
		Instructions:    llm.BuildPlainTextInstructions(),
		FileName:        doc.Metadata.SourceName,
		DocumentBytes:   doc.Bytes,
		MaxOutputTokens: e.Budget.MaxOutputTokens,
	})
	if err != nil {
		e.Logger.Error("extract.acquire_text.provider_error", "run_id", doc.ID, "error", err)
		return "", common.NewAppError("TEXT_ACQUISITION_FAILED",
			"plain-text acquisition call failed", common.ErrProviderCall)
	}
	return resp.ContentText, nil
}

// decode validates the provider's structured response. A strict schema pass
// is tried first; on failure the lenient sanitize path normalizes category
// labels and strips nulls before revalidating. Anything still invalid is a
// parse error, treated identically to a provider error by the merger.
func (e *Extractor) decode(kind constants.DocumentKind, resp llm.Response) CallOutcome {
	raw := []byte(llm.ExtractJSONObject(resp.ContentText))
	schema := llm.BuildExtractionJSONSchema(kind)

	if err := llm.ValidateJSONAgainstSchema(schema, raw); err != nil {
		cleaned, dropped, sErr := llm.SanitizeEnvelope(raw, kind)
		if sErr != nil {
			e.Logger.Error("extract.parse_error", "error", sErr, "raw_bytes", len(raw))
			return CallOutcome{
				Status:      constants.BatchParseError,
				RawText:     resp.ContentText,
				Usage:       resp.Usage,
				ErrorDetail: "unparseable structured output: " + sErr.Error(),
			}
		}
		if vErr := llm.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			e.Logger.Error("extract.schema_validation_failed", "error", vErr)
			return CallOutcome{
				Status:      constants.BatchParseError,
				RawText:     resp.ContentText,
				Usage:       resp.Usage,
				ErrorDetail: "schema validation failed: " + vErr.Error(),
			}
		}
		if len(dropped) > 0 {
			e.Logger.Warn("extract.lenient_sanitize_applied", "dropped_records", len(dropped))
		}
		raw = cleaned
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		e.Logger.Error("extract.unmarshal_failed", "error", err)
		return CallOutcome{
			Status:      constants.BatchParseError,
			RawText:     resp.ContentText,
			Usage:       resp.Usage,
			ErrorDetail: "unmarshal envelope: " + err.Error(),
		}
	}

	return CallOutcome{
		Status:  constants.BatchOK,
		Payload: &env,
		RawText: resp.ContentText,
		Usage:   resp.Usage,
	}
}
