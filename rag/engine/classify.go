package engine

import (
	"math"
	"strings"
)

var factoidKeywords = []string{"who", "what", "where", "when", "name", "define", "list", "which", "give"}

// IsFactoidQuery reports whether the query looks like a factual lookup
// rather than an open-ended semantic question. It is a deliberately crude
// substring heuristic (false positives and negatives expected): it only
// biases the sparse/dense blend weight, it never gates correctness.
func IsFactoidQuery(query string) bool {
	q := strings.ToLower(query)
	for _, k := range factoidKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

// AdjustAlpha tunes the caller-supplied dense-vs-sparse blend weight per
// query. The requested alpha is a hint, not a guarantee: factoid queries
// are clamped into the keyword-favouring band [0.2, 0.4], everything else
// is floored at 0.6 to favour semantic matching.
func AdjustAlpha(query string, alpha float64) float64 {
	if IsFactoidQuery(query) {
		return math.Min(math.Max(alpha, 0.2), 0.4)
	}
	return math.Max(alpha, 0.6)
}
