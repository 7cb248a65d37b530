package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/entity"
	"github.com/caselode/filings-extractor/internal/segment"
)

// BatchResult pairs one batch's shape with its call outcome, for merging.
type BatchResult struct {
	Batch   segment.Batch
	Outcome CallOutcome
}

// MergeResults unions structured records across batch outcomes into one
// ConsolidatedResult. Records from successful batches are concatenated in
// batch order; a failed batch contributes zero records and one diagnostic
// entry. Document details come from the first successful batch only, never
// merged field-by-field, so their provenance stays consistent.
func MergeResults(doc entity.Document, mode constants.ProcessingMode, results []BatchResult, sectionsFound int) *entity.ConsolidatedResult {
	res := &entity.ConsolidatedResult{
		RunID:          doc.ID,
		DocumentKind:   doc.Kind,
		ProcessingMode: mode,
		SourceMetadata: doc.Metadata,
		CreatedAt:      time.Now().UTC(),
	}

	detailsTaken := false
	for _, br := range results {
		diag := entity.BatchDiagnostic{
			BatchIndex:      br.Batch.Index,
			Sections:        br.Batch.SectionNames(),
			EstimatedTokens: br.Batch.EstimatedTokens,
			Status:          br.Outcome.Status,
			ErrorDetail:     br.Outcome.ErrorDetail,
			InputTokens:     br.Outcome.Usage.InputTokens,
			OutputTokens:    br.Outcome.Usage.OutputTokens,
		}
		if br.Outcome.Status == constants.BatchOK && br.Outcome.Payload != nil {
			diag.RecordCount = len(br.Outcome.Payload.Records)
			res.Records = append(res.Records, br.Outcome.Payload.Records...)
			if !detailsTaken {
				res.DocumentDetails = br.Outcome.Payload.DocumentDetails
				detailsTaken = true
			}
		} else {
			res.Summary.BatchesFailed++
		}
		res.BatchDiagnostics = append(res.BatchDiagnostics, diag)
	}

	res.Summary.CrossRefsMatched = linkDependentRecords(res.Records)

	// Counts are recomputed over the merged set: a batch only sees a subset
	// of the document, so its self-reported numbers are never trusted.
	res.Summary.TotalRecords = len(res.Records)
	res.Summary.RecordsByType = make(map[string]int)
	for _, r := range res.Records {
		res.Summary.RecordsByType[string(r.Category)]++
	}
	res.Summary.SectionsFound = sectionsFound
	res.Summary.BatchesTotal = len(results)
	return res
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9 ]+`)

// corporate suffixes dropped before name comparison
var nameSuffixes = []string{
	" LIMITED", " LTD", " PLC", " LLP", " INC", " CO",
}

// NormalizeSubject reduces a company or party name to a comparable form:
// upper-cased, punctuation stripped, trailing corporate suffix removed.
func NormalizeSubject(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = nonAlnum.ReplaceAllString(n, "")
	n = strings.Join(strings.Fields(n), " ")
	for _, suf := range nameSuffixes {
		if strings.HasSuffix(n, suf) {
			n = strings.TrimSpace(strings.TrimSuffix(n, suf))
			break
		}
	}
	return n
}

// linkDependentRecords resolves cross-references after the merge, because a
// final meeting or dissolution may reference an appointment notice that
// landed in a different batch. Matching is by normalized subject equality.
func linkDependentRecords(records []entity.ExtractedRecord) int {
	appointments := make(map[string]string)
	for _, r := range records {
		if r.Category == constants.Appointment {
			appointments[NormalizeSubject(r.SubjectName)] = r.SubjectName
		}
	}
	if len(appointments) == 0 {
		return 0
	}

	matched := 0
	for i := range records {
		switch records[i].Category {
		case constants.FinalMeeting, constants.Dissolution:
			if subject, ok := appointments[NormalizeSubject(records[i].SubjectName)]; ok {
				records[i].LinkedSubject = subject
				matched++
			}
		}
	}
	return matched
}
