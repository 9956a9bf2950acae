package engine

import (
	"math"

	"github.com/astramind/astramind/rag/types"
)

// NormalizeScores rescales Score onto [0,1] via min-max scaling and writes
// the outcome into NormScore, in place. A set whose finite scores are all
// equal (including a single result) is treated as uniformly maximally
// relevant: every NormScore becomes 1.0. Non-finite scores are excluded
// from the min/max computation and normalize to 0.0; if no finite score
// exists at all, every result gets 0.0.
func NormalizeScores(results []types.Result) []types.Result {
	return normalize(results,
		func(r *types.Result) float64 { return r.Score },
		func(r *types.Result, v float64) { r.NormScore = v })
}

// NormalizeRerankScores applies the same min-max scaling to RerankScore.
func NormalizeRerankScores(results []types.Result) []types.Result {
	return normalize(results,
		func(r *types.Result) float64 { return r.RerankScore },
		func(r *types.Result, v float64) { r.RerankScore = v })
}

func normalize(results []types.Result, get func(*types.Result) float64, set func(*types.Result, float64)) []types.Result {
	if len(results) == 0 {
		return results
	}

	minS, maxS := math.Inf(1), math.Inf(-1)
	finite := false
	for i := range results {
		s := get(&results[i])
		if math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		finite = true
		minS = math.Min(minS, s)
		maxS = math.Max(maxS, s)
	}

	for i := range results {
		s := get(&results[i])
		switch {
		case !finite, math.IsNaN(s), math.IsInf(s, 0):
			set(&results[i], 0.0)
		case maxS == minS:
			set(&results[i], 1.0)
		default:
			set(&results[i], (s-minS)/(maxS-minS))
		}
	}

	return results
}
