package budget

import (
	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/entity"
)

// EstimateDocument produces the run's SizeEstimate from the raw document
// bytes and the instruction template that will accompany them. Always
// succeeds; there is no failure mode here.
func EstimateDocument(est TokenEstimator, doc entity.Document, instructions string) entity.SizeEstimate {
	return entity.SizeEstimate{
		InputTokens:  est.Estimate(doc.Bytes),
		PromptTokens: est.EstimateText(instructions),
	}
}

// SelectMode is the pure mode decision: single-pass when the whole document
// plus instructions plus the safety margin fit under the ceiling, batch
// otherwise. No side effects.
func SelectMode(est entity.SizeEstimate, singlePassCeiling, safetyMargin int) constants.ProcessingMode {
	if est.InputTokens+est.PromptTokens+safetyMargin <= singlePassCeiling {
		return constants.ModeSinglePass
	}
	return constants.ModeBatch
}
