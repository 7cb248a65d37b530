// Package quality derives a completeness score from which expected fields
// of a consolidated result were actually populated.
package quality

import (
	"strings"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/entity"
)

// FieldCheck is one expected field for a document kind and the predicate
// that decides whether the merged result populated it.
type FieldCheck struct {
	Name      string
	Populated func(res *entity.ConsolidatedResult) bool
}

// Policy is the scoring policy for one document kind. It is injectable:
// case filings and gazette issues have structurally different expected-field
// sets, and neither formula is baked into the pipeline.
type Policy struct {
	Kind   constants.DocumentKind
	Checks []FieldCheck
}

// Score returns the completeness score on a 0-100 scale: the fraction of
// expected fields with non-empty, non-placeholder values. Deterministic for
// identical inputs.
func (p Policy) Score(res *entity.ConsolidatedResult) float64 {
	if len(p.Checks) == 0 {
		return 0
	}
	populated := 0
	for _, c := range p.Checks {
		if c.Populated(res) {
			populated++
		}
	}
	return float64(populated) / float64(len(p.Checks)) * 100
}

// Apply stamps the score and review flag onto the result. A partial run
// always goes to review: a failed batch means records are missing no matter
// how complete the surviving batches look.
func (p Policy) Apply(res *entity.ConsolidatedResult, reviewThreshold float64) {
	res.QualityScore = p.Score(res)
	res.RequiresReview = res.QualityScore < reviewThreshold || res.Summary.BatchesFailed > 0
}

var placeholders = map[string]struct{}{
	"": {}, "unknown": {}, "n/a": {}, "na": {}, "-": {}, "none": {}, "null": {}, "tbd": {},
}

func populated(s string) bool {
	_, isPlaceholder := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return !isPlaceholder
}

func detailField(get func(entity.DocumentDetails) string) func(*entity.ConsolidatedResult) bool {
	return func(res *entity.ConsolidatedResult) bool {
		return populated(get(res.DocumentDetails))
	}
}

func hasCategory(cat constants.RecordCategory) func(*entity.ConsolidatedResult) bool {
	return func(res *entity.ConsolidatedResult) bool {
		for _, r := range res.Records {
			if r.Category == cat && populated(r.SubjectName) {
				return true
			}
		}
		return false
	}
}

// hasAttr reports whether any record of the category carries a populated
// value for the named attribute.
func hasAttr(cat constants.RecordCategory, attr string) func(*entity.ConsolidatedResult) bool {
	return func(res *entity.ConsolidatedResult) bool {
		for _, r := range res.Records {
			if r.Category == cat && populated(r.Attr(attr)) {
				return true
			}
		}
		return false
	}
}

// PolicyFor returns the configured policy for a document kind.
func PolicyFor(kind constants.DocumentKind) Policy {
	switch kind {
	case constants.GazetteIssue:
		return Policy{Kind: kind, Checks: []FieldCheck{
			{Name: "issue_number", Populated: detailField(func(d entity.DocumentDetails) string { return d.IssueNumber })},
			{Name: "publication_date", Populated: detailField(func(d entity.DocumentDetails) string { return d.PublicationDate })},
			{Name: "winding_up_resolution", Populated: hasCategory(constants.WindingUpResolution)},
			{Name: "appointment", Populated: hasCategory(constants.Appointment)},
			{Name: "appointment.liquidator_name", Populated: hasAttr(constants.Appointment, "liquidator_name")},
			{Name: "creditors_meeting", Populated: hasCategory(constants.CreditorsMeeting)},
			{Name: "creditors_notice", Populated: hasCategory(constants.CreditorsNotice)},
			{Name: "final_meeting", Populated: hasCategory(constants.FinalMeeting)},
			{Name: "dissolution", Populated: hasCategory(constants.Dissolution)},
		}}
	case constants.CaseFiling:
		return Policy{Kind: kind, Checks: []FieldCheck{
			{Name: "case_number", Populated: detailField(func(d entity.DocumentDetails) string { return d.CaseNumber })},
			{Name: "court", Populated: detailField(func(d entity.DocumentDetails) string { return d.Court })},
			{Name: "filing_date", Populated: detailField(func(d entity.DocumentDetails) string { return d.FilingDate })},
			{Name: "party", Populated: hasCategory(constants.Party)},
			{Name: "party.role", Populated: hasAttr(constants.Party, "role")},
			{Name: "claim", Populated: hasCategory(constants.Claim)},
			{Name: "relief", Populated: hasCategory(constants.Relief)},
		}}
	}
	return Policy{Kind: kind}
}
