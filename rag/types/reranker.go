package types

import "context"

// Reranker re-scores an already ranked candidate shortlist and returns a
// re-sorted list truncated to topN. Reranking is a best-effort enhancement:
// implementations must absorb every internal failure and fall back to the
// input list rather than surface an error to the caller.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []Result, topN int) []Result
}
