package llm

import (
	"strings"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/entity"
)

// BuildExtractionInstructions composes the system message for a structured
// extraction call. scopeNote describes what the model is looking at: the
// whole document in single-pass mode, or a named subset of sections in
// batch mode.
func BuildExtractionInstructions(kind constants.DocumentKind, meta entity.DocumentMetadata, scopeNote string) string {
	parts := []string{
		roleLine(kind),
		"Return ONLY JSON that matches the provided JSON Schema.",
		"Every record MUST have a 'category' from the enum and a non-empty 'subject_name'.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"Never output null. If a field is not present in the text, omit it.",
		"Do not count or summarize records yourself; just list them.",
	}

	switch kind {
	case constants.GazetteIssue:
		parts = append(parts,
			"'subject_name' is the company name exactly as printed, without trailing punctuation.",
			"Include liquidator_name, liquidator_firm, meeting_date, meeting_venue, claims_deadline, effective_date and company_number when present.",
		)
	case constants.CaseFiling:
		parts = append(parts,
			"'subject_name' is the party name for party records, or the claiming party for claim and relief records.",
			"Include role, counsel, claim_summary, amount, currency_code and event_date when present.",
		)
	}

	var ctxBits []string
	if meta.IssueNumber != "" {
		ctxBits = append(ctxBits, "Issue number: "+meta.IssueNumber+".")
	}
	if meta.CaseNumber != "" {
		ctxBits = append(ctxBits, "Case number: "+meta.CaseNumber+".")
	}
	if meta.Court != "" {
		ctxBits = append(ctxBits, "Court: "+meta.Court+".")
	}
	if meta.PublicationDate != "" {
		ctxBits = append(ctxBits, "Publication date: "+meta.PublicationDate+".")
	}
	if len(ctxBits) > 0 {
		parts = append(parts, "Document context: "+strings.Join(ctxBits, " "))
	}
	if scopeNote != "" {
		parts = append(parts, scopeNote)
	}
	return strings.Join(parts, " ")
}

func roleLine(kind constants.DocumentKind) string {
	switch kind {
	case constants.GazetteIssue:
		return "You are a gazette parser extracting corporate insolvency notices from a government-gazette issue."
	case constants.CaseFiling:
		return "You are a court-filing parser extracting case facts from a filed originating process."
	}
	return "You are a document parser extracting structured records."
}

// BatchScopeNote tells the model it only sees part of the document, so
// document_details may be partial and records outside the visible sections
// must not be invented.
func BatchScopeNote(sectionNames []string) string {
	return "You are looking at ONLY these sections of a larger document: " +
		strings.Join(sectionNames, "; ") +
		". Extract records from the visible text only; do not invent records from sections you cannot see."
}

// BuildPlainTextInstructions is the text-acquisition prompt used in batch
// mode before segmentation.
func BuildPlainTextInstructions() string {
	return strings.Join([]string{
		"Transcribe the attached document to plain text.",
		"Preserve section headings exactly as printed, each on its own line.",
		"Preserve reading order. Do not summarize, annotate, or reflow tables into prose.",
		"Return the text only, with no markdown and no commentary.",
	}, " ")
}
