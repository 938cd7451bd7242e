package ocr

import "github.com/agnivade/levenshtein"

// EditDistance returns the Levenshtein distance between a and b, counted
// in runes with unit costs.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// WithinDistance reports whether a and b are at most limit edits apart.
// A non-positive limit only accepts identical strings.
func WithinDistance(a, b string, limit int) bool {
	if a == b {
		return true
	}
	if limit <= 0 {
		return false
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if la-lb > limit || lb-la > limit {
		return false
	}
	return EditDistance(a, b) <= limit
}
