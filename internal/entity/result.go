package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/caselode/filings-extractor/constants"
)

// DocumentDetails is document-level metadata as reported by the model.
// Taken from the first successful batch only, never merged field-by-field.
type DocumentDetails struct {
	Title           string `json:"title,omitempty"`
	IssueNumber     string `json:"issue_number,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
	CaseNumber      string `json:"case_number,omitempty"`
	Court           string `json:"court,omitempty"`
	FilingDate      string `json:"filing_date,omitempty"`
}

// BatchDiagnostic records the outcome of one extraction call so a failed
// batch leaves a trace instead of silently contributing nothing.
type BatchDiagnostic struct {
	BatchIndex      int                       `json:"batch_index"`
	Sections        []string                  `json:"sections,omitempty"`
	EstimatedTokens int                       `json:"estimated_tokens"`
	Status          constants.BatchCallStatus `json:"status"`
	ErrorDetail     string                    `json:"error_detail,omitempty"`
	InputTokens     int                       `json:"input_tokens,omitempty"`
	OutputTokens    int                       `json:"output_tokens,omitempty"`
	RecordCount     int                       `json:"record_count"`
}

// SummaryStats are recomputed over the merged record set. A batch only sees
// a subset of the document, so its self-reported counts are never trusted.
type SummaryStats struct {
	TotalRecords     int            `json:"total_records"`
	RecordsByType    map[string]int `json:"records_by_type"`
	SectionsFound    int            `json:"sections_found"`
	BatchesTotal     int            `json:"batches_total"`
	BatchesFailed    int            `json:"batches_failed"`
	CrossRefsMatched int            `json:"cross_refs_matched"`
}

// ConsolidatedResult is the durable output of one run.
type ConsolidatedResult struct {
	RunID            uuid.UUID                `json:"run_id"`
	DocumentKind     constants.DocumentKind   `json:"document_kind"`
	ProcessingMode   constants.ProcessingMode `json:"processing_mode"`
	Records          []ExtractedRecord        `json:"records"`
	DocumentDetails  DocumentDetails          `json:"document_details"`
	SourceMetadata   DocumentMetadata         `json:"source_metadata"`
	Summary          SummaryStats             `json:"summary_stats"`
	QualityScore     float64                  `json:"quality_score"`
	RequiresReview   bool                     `json:"requires_review"`
	BatchDiagnostics []BatchDiagnostic        `json:"batch_diagnostics"`
	CreatedAt        time.Time                `json:"created_at"`
}

// ReviewItem is handed to the review-queue collaborator when a result
// scores below the review threshold.
type ReviewItem struct {
	ItemType string    `json:"item_type"`
	ItemID   uuid.UUID `json:"item_id"`
	Reason   string    `json:"reason"`
	Priority int       `json:"priority"` // 1 = highest
}
