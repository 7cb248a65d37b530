package constants

import "strings"

// RecordCategory labels one extracted record.
type RecordCategory string

// Gazette-issue categories.
const (
	WindingUpResolution RecordCategory = "winding_up_resolution"
	Appointment         RecordCategory = "appointment"
	CreditorsMeeting    RecordCategory = "creditors_meeting"
	CreditorsNotice     RecordCategory = "creditors_notice"
	FinalMeeting        RecordCategory = "final_meeting"
	Dissolution         RecordCategory = "dissolution"
)

// Case-filing categories.
const (
	Party  RecordCategory = "party"
	Claim  RecordCategory = "claim"
	Relief RecordCategory = "relief"
)

var gazetteCategories = []RecordCategory{
	WindingUpResolution,
	Appointment,
	CreditorsMeeting,
	CreditorsNotice,
	FinalMeeting,
	Dissolution,
}

var caseFilingCategories = []RecordCategory{
	Party,
	Claim,
	Relief,
}

// CategoriesFor returns the allowed record categories for a document kind.
func CategoriesFor(kind DocumentKind) []RecordCategory {
	switch kind {
	case GazetteIssue:
		return gazetteCategories
	case CaseFiling:
		return caseFilingCategories
	}
	return nil
}

// CategoryStrings returns the categories as plain strings, for schema enums.
func CategoryStrings(kind DocumentKind) []string {
	cats := CategoriesFor(kind)
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

// Canonicalize maps a model-supplied category label onto a known category.
func Canonicalize(kind DocumentKind, input string) (RecordCategory, bool) {
	normalized := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(input, "-", "_")))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	for _, c := range CategoriesFor(kind) {
		if normalized == string(c) {
			return c, true
		}
	}
	return "", false
}
