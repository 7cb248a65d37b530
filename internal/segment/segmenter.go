package segment

import (
	"log/slog"
	"strings"

	"github.com/caselode/filings-extractor/internal/budget"
	"github.com/caselode/filings-extractor/internal/common"
)

// Section is one named, contiguous region of the acquired plain text.
// Ephemeral: sections exist only within a single run.
type Section struct {
	Name            string
	Ordinal         int
	CharStart       int
	CharEnd         int
	Content         string
	EstimatedTokens int
}

// Segmenter locates a template's headings in plain text, in order.
type Segmenter struct {
	Estimator budget.TokenEstimator
	Logger    *slog.Logger
}

func NewSegmenter(est budget.TokenEstimator, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{Estimator: est, Logger: logger}
}

// upperASCII uppercases ASCII letters only, leaving every other byte alone.
// Byte offsets into the result are valid offsets into the input, which
// strings.ToUpper does not guarantee (some non-ASCII runes change byte
// length when uppercased). Template headings are ASCII.
func upperASCII(s string) string {
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if 'a' <= b[i] && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

// Split scans text for the template's headings. Each section spans from its
// heading to the next recognized heading, or to the terminal heading, or to
// the end of the text. Missing headings are simply absent from the result.
// Zero located headings is fatal for the run: with no boundaries there is
// nothing to batch, so ErrSegmentationFailed is returned.
func (s *Segmenter) Split(text string, tpl Template) ([]Section, error) {
	upper := upperASCII(text)

	type hit struct {
		name  string
		start int
	}
	var hits []hit
	cursor := 0
	for _, h := range tpl.Headings {
		idx := strings.Index(upper[cursor:], upperASCII(h))
		if idx < 0 {
			s.Logger.Debug("segment.heading.missing", "heading", h)
			continue
		}
		at := cursor + idx
		hits = append(hits, hit{name: h, start: at})
		cursor = at + len(h)
	}
	if len(hits) == 0 {
		s.Logger.Error("segment.no_headings", "headings_expected", len(tpl.Headings), "text_bytes", len(text))
		return nil, common.NewAppError("SEGMENTATION_FAILED",
			"no recognizable section headings in document text", common.ErrSegmentationFailed)
	}

	// The terminal heading (an unrelated trailing region, e.g. the personal
	// insolvency part of a gazette) caps the last section when present.
	end := len(text)
	if tpl.Terminal != "" {
		last := hits[len(hits)-1]
		if idx := strings.Index(upper[last.start+len(last.name):], upperASCII(tpl.Terminal)); idx >= 0 {
			end = last.start + len(last.name) + idx
		}
	}

	sections := make([]Section, 0, len(hits))
	for i, h := range hits {
		stop := end
		if i+1 < len(hits) {
			stop = hits[i+1].start
		}
		content := text[h.start:stop]
		sections = append(sections, Section{
			Name:            h.name,
			Ordinal:         i,
			CharStart:       h.start,
			CharEnd:         stop,
			Content:         content,
			EstimatedTokens: s.Estimator.EstimateText(content),
		})
	}

	s.Logger.Info("segment.ok",
		"sections_found", len(sections),
		"headings_expected", len(tpl.Headings),
		"text_bytes", len(text),
	)
	return sections, nil
}
