package entity

import (
	"github.com/google/uuid"

	"github.com/caselode/filings-extractor/constants"
)

// Document is the immutable input to one extraction run. It is created once
// per inbound request and never mutated.
type Document struct {
	ID       uuid.UUID
	Kind     constants.DocumentKind
	Bytes    []byte
	Metadata DocumentMetadata
}

// DocumentMetadata is caller-supplied context about the source document.
type DocumentMetadata struct {
	IssueNumber     string `json:"issue_number,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"` // YYYY-MM-DD
	CaseNumber      string `json:"case_number,omitempty"`
	Court           string `json:"court,omitempty"`
	SourceName      string `json:"source_name,omitempty"`
}

// SizeEstimate is the pre-call approximation of a document's token cost.
// Derived deterministically from the Document; recomputed fresh per run.
type SizeEstimate struct {
	InputTokens  int `json:"estimated_input_tokens"`
	PromptTokens int `json:"estimated_prompt_tokens"`
}

// Total is the combined input-side estimate used by the mode decision.
func (s SizeEstimate) Total() int { return s.InputTokens + s.PromptTokens }
