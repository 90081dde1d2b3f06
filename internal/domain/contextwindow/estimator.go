package contextwindow

import "unicode/utf8"

// TokenEstimateRatio estimates ~4 characters per token.
const TokenEstimateRatio = 4

// Estimate approximates the token cost of text from its character length:
// zero for empty text, otherwise at least one.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(1, n/TokenEstimateRatio)
}
