package llm

import (
	"encoding/json"
	"strings"

	"github.com/caselode/filings-extractor/constants"
)

// ExtractJSONObject trims a model response down to the outermost JSON object.
// Models occasionally wrap output in markdown fences or add a leading
// sentence despite instructions; the payload itself is usually intact.
func ExtractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// SanitizeEnvelope normalizes an extraction payload that failed strict
// validation so the document as a whole can still validate: category labels
// are canonicalized, null-valued properties are removed, and records that
// still lack a usable category or subject_name are dropped. Returns the
// cleaned document and the indexes of dropped records.
func SanitizeEnvelope(doc []byte, kind constants.DocumentKind) ([]byte, []int, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	var dropped []int
	if recs, ok := m["records"].([]any); ok {
		kept := make([]any, 0, len(recs))
		for i, r := range recs {
			rec, ok := r.(map[string]any)
			if !ok {
				dropped = append(dropped, i)
				continue
			}
			for k, v := range rec {
				if v == nil {
					delete(rec, k)
				}
			}
			cat, _ := rec["category"].(string)
			canonical, ok := constants.Canonicalize(kind, cat)
			if !ok {
				dropped = append(dropped, i)
				continue
			}
			rec["category"] = string(canonical)

			name, _ := rec["subject_name"].(string)
			name = strings.TrimSpace(name)
			if name == "" {
				dropped = append(dropped, i)
				continue
			}
			rec["subject_name"] = name
			kept = append(kept, rec)
		}
		m["records"] = kept
	}

	if det, ok := m["document_details"].(map[string]any); ok {
		for k, v := range det {
			if v == nil {
				delete(det, k)
			} else if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				delete(det, k)
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}
