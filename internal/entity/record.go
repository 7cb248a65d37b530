package entity

import (
	"encoding/json"

	"github.com/caselode/filings-extractor/constants"
)

// ExtractedRecord is one structured record pulled out of a document: a
// liquidation notice in a gazette issue, or a party/claim/relief in a case
// filing. Category and SubjectName are the normalized spine every record
// carries; everything kind-specific lives in Attributes.
type ExtractedRecord struct {
	Category    constants.RecordCategory `json:"category"`
	SubjectName string                   `json:"subject_name"`
	Attributes  map[string]any           `json:"-"`

	// LinkedSubject is filled post-merge when this record references a peer
	// record that may have landed in a different batch (a final meeting or
	// dissolution referencing the matching appointment).
	LinkedSubject string `json:"linked_subject,omitempty"`
}

// recordEnvelope is the fixed part of the wire shape.
type recordEnvelope struct {
	Category      string `json:"category"`
	SubjectName   string `json:"subject_name"`
	LinkedSubject string `json:"linked_subject"`
}

// UnmarshalJSON keeps the fixed envelope typed and folds every other property
// the model returned into Attributes.
func (r *ExtractedRecord) UnmarshalJSON(data []byte) error {
	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "category")
	delete(raw, "subject_name")
	delete(raw, "linked_subject")
	r.Category = constants.RecordCategory(env.Category)
	r.SubjectName = env.SubjectName
	r.LinkedSubject = env.LinkedSubject
	r.Attributes = raw
	return nil
}

// MarshalJSON flattens Attributes back alongside the envelope fields.
func (r ExtractedRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Attributes)+3)
	for k, v := range r.Attributes {
		out[k] = v
	}
	out["category"] = string(r.Category)
	out["subject_name"] = r.SubjectName
	if r.LinkedSubject != "" {
		out["linked_subject"] = r.LinkedSubject
	}
	return json.Marshal(out)
}

// Attr returns a string attribute, or "" when absent or non-string.
func (r ExtractedRecord) Attr(key string) string {
	if v, ok := r.Attributes[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
