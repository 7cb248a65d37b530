package segment

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/budget"
	"github.com/caselode/filings-extractor/internal/common"
)

func gazetteTemplate(t *testing.T) Template {
	t.Helper()
	reg, err := LoadRegistry("")
	require.NoError(t, err)
	tpl, ok := reg.TemplateFor(constants.GazetteIssue)
	require.True(t, ok)
	return tpl
}

func TestLoadRegistryEmbeddedDefaults(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)

	tpl, ok := reg.TemplateFor(constants.GazetteIssue)
	require.True(t, ok)
	assert.Equal(t, "PERSONAL INSOLVENCY", tpl.Terminal)
	assert.Len(t, tpl.Headings, 6)

	_, ok = reg.TemplateFor(constants.CaseFiling)
	assert.True(t, ok)
}

func TestSplitFindsOrderedSections(t *testing.T) {
	text := strings.Join([]string{
		"THE COMPANIES GAZETTE No. 4471",
		"RESOLUTIONS FOR WINDING-UP",
		"Alder Freight Ltd resolved on 2026-01-12 that the company be wound up voluntarily.",
		"APPOINTMENT OF LIQUIDATORS",
		"R. Okafor of Meridian Insolvency was appointed liquidator of Alder Freight Ltd.",
		"FINAL MEETINGS",
		"The final meeting of Alder Freight Ltd will be held on 2026-03-01.",
		"PERSONAL INSOLVENCY",
		"Bankruptcy orders follow; this region is out of scope.",
	}, "\n")

	seg := NewSegmenter(budget.NewHeuristicEstimator(4), nil)
	sections, err := seg.Split(text, gazetteTemplate(t))
	require.NoError(t, err)

	// Only the located subset is returned; missing headings are not an error.
	require.Len(t, sections, 3)
	assert.Equal(t, "RESOLUTIONS FOR WINDING-UP", sections[0].Name)
	assert.Equal(t, "APPOINTMENT OF LIQUIDATORS", sections[1].Name)
	assert.Equal(t, "FINAL MEETINGS", sections[2].Name)

	for i, s := range sections {
		assert.Equal(t, i, s.Ordinal)
		assert.Equal(t, text[s.CharStart:s.CharEnd], s.Content)
		assert.Positive(t, s.EstimatedTokens)
	}

	// Sections tile the region between the first heading and the terminal.
	assert.Equal(t, sections[0].CharEnd, sections[1].CharStart)
	assert.Equal(t, sections[1].CharEnd, sections[2].CharStart)

	// The terminal region is discarded.
	assert.NotContains(t, sections[2].Content, "Bankruptcy orders")
	assert.Contains(t, sections[2].Content, "final meeting of Alder Freight")
}

func TestSplitWithoutTerminalRunsToEnd(t *testing.T) {
	text := "DISSOLUTIONS\nAlder Freight Ltd was dissolved on 2026-04-02."
	seg := NewSegmenter(budget.NewHeuristicEstimator(4), nil)

	sections, err := seg.Split(text, gazetteTemplate(t))
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, len(text), sections[0].CharEnd)
}

func TestSplitIsCaseInsensitive(t *testing.T) {
	text := "Appointment of Liquidators\nSomeone was appointed."
	seg := NewSegmenter(budget.NewHeuristicEstimator(4), nil)

	sections, err := seg.Split(text, gazetteTemplate(t))
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "APPOINTMENT OF LIQUIDATORS", sections[0].Name)
}

func TestSplitOffsetsSurviveLengthChangingRunes(t *testing.T) {
	// ɽ (U+027D) grows from 2 to 3 bytes under Unicode uppercasing, so any
	// occurrence before a heading would shift offsets computed on an
	// uppercased copy. Headings must be located at offsets valid in the
	// original text.
	text := strings.Repeat("ɽ", 200) + "\nAPPOINTMENT OF LIQUIDATORS\n" +
		"R. Okafor was appointed liquidator of Ałder Freight Ltd.\n" +
		strings.Repeat("ɽ", 100) + "\nDISSOLUTIONS\nAłder Freight Ltd was dissolved."
	seg := NewSegmenter(budget.NewHeuristicEstimator(4), nil)

	sections, err := seg.Split(text, gazetteTemplate(t))
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "APPOINTMENT OF LIQUIDATORS", sections[0].Name)
	assert.Equal(t, "DISSOLUTIONS", sections[1].Name)
	for _, s := range sections {
		require.LessOrEqual(t, s.CharEnd, len(text))
		assert.Equal(t, text[s.CharStart:s.CharEnd], s.Content)
		assert.True(t, strings.HasPrefix(s.Content, s.Name))
	}
	assert.Contains(t, sections[1].Content, "was dissolved")
}

func TestSplitZeroHeadingsIsFatal(t *testing.T) {
	seg := NewSegmenter(budget.NewHeuristicEstimator(4), nil)

	_, err := seg.Split("completely unrelated text with no known headings", gazetteTemplate(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSegmentationFailed))
}
