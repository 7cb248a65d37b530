package constants

import "strings"

// DocumentKind selects the section template, extraction schema and scoring
// policy for an inbound document.
type DocumentKind string

const (
	CaseFiling   DocumentKind = "CASE_FILING"
	GazetteIssue DocumentKind = "GAZETTE_ISSUE"
)

// DocumentKinds holds the allowed kinds for the kind field in ExtractionRun.
var DocumentKinds = []string{string(CaseFiling), string(GazetteIssue)}

// ParseKind normalizes a caller-supplied kind string.
func ParseKind(s string) (DocumentKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case string(CaseFiling):
		return CaseFiling, true
	case string(GazetteIssue):
		return GazetteIssue, true
	}
	return "", false
}
