package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
	"github.com/caselode/filings-extractor/internal/llm"
	"github.com/caselode/filings-extractor/internal/segment"
)

// scriptedProvider plays back canned responses, one per call, in order.
type scriptedProvider struct {
	read     []func(llm.DocumentRequest) (llm.Response, error)
	complete []func(llm.TextRequest) (llm.Response, error)

	readCalls       int
	completeCalls   int
	maxOutputTokens []int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) ReadDocument(_ context.Context, req llm.DocumentRequest) (llm.Response, error) {
	idx := s.readCalls
	s.readCalls++
	s.maxOutputTokens = append(s.maxOutputTokens, req.MaxOutputTokens)
	if idx >= len(s.read) {
		return llm.Response{}, fmt.Errorf("unexpected ReadDocument call %d", idx)
	}
	return s.read[idx](req)
}

func (s *scriptedProvider) CompleteText(_ context.Context, req llm.TextRequest) (llm.Response, error) {
	idx := s.completeCalls
	s.completeCalls++
	s.maxOutputTokens = append(s.maxOutputTokens, req.MaxOutputTokens)
	if idx >= len(s.complete) {
		return llm.Response{}, fmt.Errorf("unexpected CompleteText call %d", idx)
	}
	return s.complete[idx](req)
}

func textResponse(content string) func(llm.TextRequest) (llm.Response, error) {
	return func(llm.TextRequest) (llm.Response, error) {
		return llm.Response{ContentText: content, Usage: llm.Usage{InputTokens: 100, OutputTokens: 40}}, nil
	}
}

func testBudget() common.BudgetConfig {
	return common.BudgetConfig{
		ContextWindow:     2_000,
		SinglePassCeiling: 300,
		SafetyMargin:      10,
		MaxBatchTokens:    60,
		MinOutputTokens:   50,
		MaxOutputTokens:   400,
		BytesPerToken:     4,
		InterCallDelay:    0,
		ReviewThreshold:   60,
	}
}

func testRegistry(t *testing.T) *segment.Registry {
	t.Helper()
	reg, err := segment.LoadRegistry("")
	require.NoError(t, err)
	return reg
}

// gazetteText is sized so each of its three sections exceeds half the test
// batch budget, forcing one batch per section.
func gazetteText() string {
	pad := strings.Repeat("The notice text continues with formal wording. ", 2)
	return strings.Join([]string{
		"RESOLUTIONS FOR WINDING-UP",
		"Alder Freight Ltd resolved that the company be wound up voluntarily. " + pad,
		"APPOINTMENT OF LIQUIDATORS",
		"R. Okafor of Meridian Insolvency was appointed liquidator of Alder Freight Ltd. " + pad,
		"DISSOLUTIONS",
		"Alder Freight Ltd was dissolved. " + pad,
	}, "\n")
}

func batchDoc() entity.Document {
	// Large enough that the size estimate exceeds the single-pass ceiling.
	return entity.Document{
		ID:       uuid.New(),
		Kind:     constants.GazetteIssue,
		Bytes:    []byte(strings.Repeat("x", 2_000)),
		Metadata: entity.DocumentMetadata{IssueNumber: "4471", SourceName: "gazette-4471.pdf"},
	}
}

func TestRunSinglePass(t *testing.T) {
	payload := `{
		"document_details": {"issue_number": "4471", "publication_date": "2026-02-03"},
		"records": [
			{"category": "appointment", "subject_name": "Alder Freight Ltd", "liquidator_name": "R. Okafor"},
			{"category": "final_meeting", "subject_name": "Alder Freight Ltd", "meeting_date": "2026-03-01"}
		]
	}`
	provider := &scriptedProvider{
		read: []func(llm.DocumentRequest) (llm.Response, error){
			func(llm.DocumentRequest) (llm.Response, error) {
				return llm.Response{ContentText: payload, Usage: llm.Usage{InputTokens: 60, OutputTokens: 30}}, nil
			},
		},
	}

	doc := entity.Document{
		ID:       uuid.New(),
		Kind:     constants.GazetteIssue,
		Bytes:    []byte("small gazette"),
		Metadata: entity.DocumentMetadata{IssueNumber: "4471"},
	}
	p := NewProcessor(nil, testBudget(), provider, testRegistry(t))

	res, err := p.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, constants.ModeSinglePass, res.ProcessingMode)
	assert.Equal(t, 1, provider.readCalls)
	assert.Zero(t, provider.completeCalls)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "4471", res.DocumentDetails.IssueNumber)
	require.Len(t, res.BatchDiagnostics, 1)
	assert.Equal(t, constants.BatchOK, res.BatchDiagnostics[0].Status)
	assert.Equal(t, 2, res.BatchDiagnostics[0].RecordCount)

	// Final meeting cross-linked to the appointment from the same pass.
	assert.Equal(t, "Alder Freight Ltd", res.Records[1].LinkedSubject)
}

func TestRunBatchModePartialFailure(t *testing.T) {
	provider := &scriptedProvider{
		read: []func(llm.DocumentRequest) (llm.Response, error){
			func(llm.DocumentRequest) (llm.Response, error) {
				return llm.Response{ContentText: gazetteText()}, nil
			},
		},
		complete: []func(llm.TextRequest) (llm.Response, error){
			textResponse(`{"document_details": {"issue_number": "4471", "publication_date": "2026-02-03"},
				"records": [{"category": "winding_up_resolution", "subject_name": "Alder Freight Ltd", "effective_date": "2026-01-12"}]}`),
			func(llm.TextRequest) (llm.Response, error) {
				return llm.Response{}, errors.New("transport: connection reset")
			},
			textResponse(`{"records": [{"category": "dissolution", "subject_name": "ALDER FREIGHT LIMITED"}]}`),
		},
	}

	p := NewProcessor(nil, testBudget(), provider, testRegistry(t))
	res, err := p.Run(context.Background(), batchDoc())
	require.NoError(t, err)

	assert.Equal(t, constants.ModeBatch, res.ProcessingMode)
	assert.Equal(t, 1, provider.readCalls, "one text-acquisition call")
	assert.Equal(t, 3, provider.completeCalls, "one call per batch")

	// Records from batches 1 and 3 survive batch 2's failure.
	require.Len(t, res.Records, 2)
	assert.Equal(t, constants.WindingUpResolution, res.Records[0].Category)
	assert.Equal(t, constants.Dissolution, res.Records[1].Category)

	require.Len(t, res.BatchDiagnostics, 3)
	assert.Equal(t, constants.BatchProviderError, res.BatchDiagnostics[1].Status)
	assert.Contains(t, res.BatchDiagnostics[1].ErrorDetail, "connection reset")
	assert.Equal(t, 1, res.Summary.BatchesFailed)

	// Depressed score flags the result for review.
	assert.True(t, res.RequiresReview)
	assert.Less(t, res.QualityScore, 60.0)

	// Details came from the first successful batch.
	assert.Equal(t, "4471", res.DocumentDetails.IssueNumber)
}

func TestRunFailedBatchForcesReviewAboveThreshold(t *testing.T) {
	// The surviving batches populate 6 of the 9 expected gazette checks, so
	// the score stays above the 60 threshold. The failed batch must flag the
	// run for review anyway.
	provider := &scriptedProvider{
		read: []func(llm.DocumentRequest) (llm.Response, error){
			func(llm.DocumentRequest) (llm.Response, error) {
				return llm.Response{ContentText: gazetteText()}, nil
			},
		},
		complete: []func(llm.TextRequest) (llm.Response, error){
			textResponse(`{"document_details": {"issue_number": "4471", "publication_date": "2026-02-03"},
				"records": [
					{"category": "winding_up_resolution", "subject_name": "Alder Freight Ltd"},
					{"category": "appointment", "subject_name": "Alder Freight Ltd", "liquidator_name": "R. Okafor"}
				]}`),
			func(llm.TextRequest) (llm.Response, error) {
				return llm.Response{}, errors.New("non-2xx status: 503")
			},
			textResponse(`{"records": [{"category": "dissolution", "subject_name": "Alder Freight Ltd"}]}`),
		},
	}

	p := NewProcessor(nil, testBudget(), provider, testRegistry(t))
	res, err := p.Run(context.Background(), batchDoc())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.QualityScore, 60.0)
	assert.Equal(t, 1, res.Summary.BatchesFailed)
	assert.True(t, res.RequiresReview, "a partial run is reviewed regardless of score")
}

func TestRunBatchModeParseErrorIsLocal(t *testing.T) {
	provider := &scriptedProvider{
		read: []func(llm.DocumentRequest) (llm.Response, error){
			func(llm.DocumentRequest) (llm.Response, error) {
				return llm.Response{ContentText: gazetteText()}, nil
			},
		},
		complete: []func(llm.TextRequest) (llm.Response, error){
			textResponse(`{"records": [{"category": "winding_up_resolution", "subject_name": "Alder Freight Ltd"}]}`),
			textResponse(`the model rambled instead of returning JSON`),
			textResponse(`{"records": [{"category": "dissolution", "subject_name": "Alder Freight Ltd"}]}`),
		},
	}

	p := NewProcessor(nil, testBudget(), provider, testRegistry(t))
	res, err := p.Run(context.Background(), batchDoc())
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, constants.BatchParseError, res.BatchDiagnostics[1].Status)
	assert.Equal(t, 1, res.Summary.BatchesFailed)
}

func TestRunSegmentationFailedIsFatal(t *testing.T) {
	provider := &scriptedProvider{
		read: []func(llm.DocumentRequest) (llm.Response, error){
			func(llm.DocumentRequest) (llm.Response, error) {
				return llm.Response{ContentText: "plain text with none of the expected headings"}, nil
			},
		},
	}

	p := NewProcessor(nil, testBudget(), provider, testRegistry(t))
	res, err := p.Run(context.Background(), batchDoc())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, common.ErrSegmentationFailed))
	assert.Zero(t, provider.completeCalls, "no extraction calls without boundaries")
}

func TestRunTextAcquisitionFailureIsFatal(t *testing.T) {
	provider := &scriptedProvider{
		read: []func(llm.DocumentRequest) (llm.Response, error){
			func(llm.DocumentRequest) (llm.Response, error) {
				return llm.Response{}, errors.New("non-2xx status: 503")
			},
		},
	}

	p := NewProcessor(nil, testBudget(), provider, testRegistry(t))
	res, err := p.Run(context.Background(), batchDoc())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, common.ErrProviderCall))
}

func TestRunOversizedSectionProceeds(t *testing.T) {
	// One recognizable section far over the batch budget: it becomes its own
	// batch and is sent anyway.
	huge := "DISSOLUTIONS\n" + strings.Repeat("Alder Freight Ltd was dissolved. ", 50)
	provider := &scriptedProvider{
		read: []func(llm.DocumentRequest) (llm.Response, error){
			func(llm.DocumentRequest) (llm.Response, error) {
				return llm.Response{ContentText: huge}, nil
			},
		},
		complete: []func(llm.TextRequest) (llm.Response, error){
			textResponse(`{"records": [{"category": "dissolution", "subject_name": "Alder Freight Ltd"}]}`),
		},
	}

	p := NewProcessor(nil, testBudget(), provider, testRegistry(t))
	res, err := p.Run(context.Background(), batchDoc())
	require.NoError(t, err)

	require.Len(t, res.BatchDiagnostics, 1)
	assert.Greater(t, res.BatchDiagnostics[0].EstimatedTokens, testBudget().MaxBatchTokens)
	require.Len(t, res.Records, 1)
}

func TestRunCancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &scriptedProvider{
		read: []func(llm.DocumentRequest) (llm.Response, error){
			func(llm.DocumentRequest) (llm.Response, error) {
				return llm.Response{ContentText: gazetteText()}, nil
			},
		},
		complete: []func(llm.TextRequest) (llm.Response, error){
			func(llm.TextRequest) (llm.Response, error) {
				cancel() // host deadline hits mid-run
				return llm.Response{ContentText: `{"records": []}`}, nil
			},
		},
	}

	p := NewProcessor(nil, testBudget(), provider, testRegistry(t))
	res, err := p.Run(ctx, batchDoc())
	require.Error(t, err)
	assert.Nil(t, res, "no consolidated result for an aborted run")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOutputAllowanceWithinBounds(t *testing.T) {
	provider := &scriptedProvider{
		read: []func(llm.DocumentRequest) (llm.Response, error){
			func(llm.DocumentRequest) (llm.Response, error) {
				return llm.Response{ContentText: gazetteText()}, nil
			},
		},
		complete: []func(llm.TextRequest) (llm.Response, error){
			textResponse(`{"records": []}`),
			textResponse(`{"records": []}`),
			textResponse(`{"records": []}`),
		},
	}

	cfg := testBudget()
	p := NewProcessor(nil, cfg, provider, testRegistry(t))
	_, err := p.Run(context.Background(), batchDoc())
	require.NoError(t, err)

	for _, got := range provider.maxOutputTokens[1:] { // skip the acquisition call
		assert.GreaterOrEqual(t, got, cfg.MinOutputTokens)
		assert.LessOrEqual(t, got, cfg.MaxOutputTokens)
	}
}
