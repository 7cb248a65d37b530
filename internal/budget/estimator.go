// Package budget implements the pre-call token arithmetic: size estimation,
// the single-pass/batch mode decision, and the output-token allowance.
package budget

// TokenEstimator approximates the token cost of a byte slice. The heuristic
// implementation is the default; a real tokenizer can be substituted without
// touching the mode selector or the batch grouper.
type TokenEstimator interface {
	Estimate(data []byte) int
	EstimateText(text string) int
}

// HeuristicEstimator divides length by an average bytes-per-token constant,
// rounding up. Overestimating slightly is deliberate: the estimate gates an
// irreversible mode decision before any provider call is made.
type HeuristicEstimator struct {
	BytesPerToken int
}

// NewHeuristicEstimator returns an estimator with the given divisor
// (4 is the usual value for Latin-script text).
func NewHeuristicEstimator(bytesPerToken int) HeuristicEstimator {
	if bytesPerToken <= 0 {
		bytesPerToken = 4
	}
	return HeuristicEstimator{BytesPerToken: bytesPerToken}
}

func (e HeuristicEstimator) Estimate(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	return (len(data) + e.BytesPerToken - 1) / e.BytesPerToken
}

func (e HeuristicEstimator) EstimateText(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + e.BytesPerToken - 1) / e.BytesPerToken
}
