package llm

import "github.com/caselode/filings-extractor/constants"

// BuildExtractionJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass this to the provider as a structured output constraint
// and also use it locally to validate what came back.
func BuildExtractionJSONSchema(kind constants.DocumentKind) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"document_details": documentDetailsSchema(kind),
			"records": map[string]any{
				"type":  "array",
				"items": recordSchema(kind),
			},
		},
		"required": []string{"records"},
	}
}

func documentDetailsSchema(kind constants.DocumentKind) map[string]any {
	props := map[string]any{
		"title": map[string]any{"type": "string"},
	}
	switch kind {
	case constants.GazetteIssue:
		props["issue_number"] = map[string]any{"type": "string"}
		props["publication_date"] = dateProp()
	case constants.CaseFiling:
		props["case_number"] = map[string]any{"type": "string"}
		props["court"] = map[string]any{"type": "string"}
		props["filing_date"] = dateProp()
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func recordSchema(kind constants.DocumentKind) map[string]any {
	props := map[string]any{
		"category": map[string]any{
			"type": "string",
			"enum": constants.CategoryStrings(kind),
		},
		"subject_name": map[string]any{"type": "string", "minLength": 1},
	}
	switch kind {
	case constants.GazetteIssue:
		props["company_number"] = map[string]any{"type": "string"}
		props["liquidator_name"] = map[string]any{"type": "string"}
		props["liquidator_firm"] = map[string]any{"type": "string"}
		props["effective_date"] = dateProp()
		props["meeting_date"] = dateProp()
		props["meeting_venue"] = map[string]any{"type": "string"}
		props["claims_deadline"] = dateProp()
	case constants.CaseFiling:
		props["role"] = map[string]any{"type": "string"}
		props["counsel"] = map[string]any{"type": "string"}
		props["claim_summary"] = map[string]any{"type": "string"}
		props["amount"] = map[string]any{"type": "string", "pattern": `^-?\d+(\.\d{1,2})?$`}
		props["currency_code"] = map[string]any{"type": "string", "minLength": 3, "maxLength": 3}
		props["event_date"] = dateProp()
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties":           props,
		"required":             []string{"category", "subject_name"},
	}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
}
