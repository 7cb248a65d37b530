package segment

import "strings"

// Batch is an ordered, non-empty run of consecutive sections sent together
// in one extraction call.
type Batch struct {
	Index           int
	Sections        []Section
	EstimatedTokens int
}

// Text concatenates the batch's section contents in document order.
func (b Batch) Text() string {
	var sb strings.Builder
	for _, s := range b.Sections {
		sb.WriteString(s.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// SectionNames lists the batch's section headings, for diagnostics.
func (b Batch) SectionNames() []string {
	names := make([]string, len(b.Sections))
	for i, s := range b.Sections {
		names[i] = s.Name
	}
	return names
}

// Oversized reports whether the batch alone exceeds the budget it was
// grouped under (the single-oversized-section isolation case).
func (b Batch) Oversized(maxBatchTokens int) bool {
	return b.EstimatedTokens > maxBatchTokens
}

// GroupIntoBatches walks sections in order, accumulating into the current
// batch and starting a new one whenever adding the next section would exceed
// maxBatchTokens. A single section that alone exceeds the budget becomes its
// own batch anyway: the overflow risk is accepted rather than dropping data.
// Section order is preserved and every section lands in exactly one batch,
// so the batch estimates sum to the section estimates exactly.
func GroupIntoBatches(sections []Section, maxBatchTokens int) []Batch {
	if len(sections) == 0 {
		return nil
	}

	var batches []Batch
	current := Batch{Index: 0}
	for _, sec := range sections {
		if len(current.Sections) > 0 && current.EstimatedTokens+sec.EstimatedTokens > maxBatchTokens {
			batches = append(batches, current)
			current = Batch{Index: len(batches)}
		}
		current.Sections = append(current.Sections, sec)
		current.EstimatedTokens += sec.EstimatedTokens
	}
	batches = append(batches, current)
	return batches
}
