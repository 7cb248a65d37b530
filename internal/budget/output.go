package budget

// OutputAllowance computes max_output_tokens for one call: whatever context
// remains after the estimated input and the safety margin, clamped to
// [minOutput, maxOutput]. Smaller inputs get more output headroom; inputs
// near the window get the floor amount.
func OutputAllowance(estimatedInputTokens, contextWindow, safetyMargin, minOutput, maxOutput int) int {
	remaining := contextWindow - estimatedInputTokens - safetyMargin
	if remaining < minOutput {
		return minOutput
	}
	if remaining > maxOutput {
		return maxOutput
	}
	return remaining
}
