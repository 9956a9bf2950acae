package engine

import (
	"context"
	"sort"

	"github.com/astramind/astramind/rag/interfaces"
	"github.com/astramind/astramind/rag/types"
	"github.com/mudler/xlog"
)

// HybridSearcher merges sparse keyword retrieval with dense vector
// retrieval into a single ranked result list. All collaborators are
// injected explicitly; the searcher owns no ambient state beyond the
// keyword index it is constructed with.
type HybridSearcher struct {
	keyword  *KeywordIndex
	embedder interfaces.Embedder
	store    interfaces.VectorStore
	reranker types.Reranker
}

// NewHybridSearcher creates a hybrid searcher. The reranker may be nil, in
// which case the merged list is returned as-is.
func NewHybridSearcher(keyword *KeywordIndex, embedder interfaces.Embedder, store interfaces.VectorStore, reranker types.Reranker) *HybridSearcher {
	return &HybridSearcher{
		keyword:  keyword,
		embedder: embedder,
		store:    store,
		reranker: reranker,
	}
}

// HybridSearch runs keyword and vector retrieval for the query, normalizes
// each branch, merges them by weighted sum keyed on result text, and
// returns the topK merged results in descending score order.
//
// Degradation contract: either branch may fail independently (collaborator
// unreachable, embedding empty); the failed branch contributes an empty
// result list and the error is logged, never returned. The operation as a
// whole never fails: any unexpected condition yields an empty list.
func (h *HybridSearcher) HybridSearch(ctx context.Context, query string, alpha float64, topK int) (results []types.Result) {
	defer func() {
		if r := recover(); r != nil {
			xlog.Error("Hybrid search failed", "query", query, "error", r)
			results = []types.Result{}
		}
	}()

	alpha = AdjustAlpha(query, alpha)

	keywordResults := NormalizeScores(h.keyword.Retrieve(query, topK))
	vectorResults := NormalizeScores(h.denseRetrieve(ctx, query, topK))

	// Merge by raw text: a passage surfaced by both signals accumulates
	// both contributions, rewarding cross-signal agreement.
	combined := map[string]float64{}
	order := []string{}
	accumulate := func(text string, score float64) {
		if text == "" {
			return
		}
		if _, ok := combined[text]; !ok {
			order = append(order, text)
		}
		combined[text] += score
	}

	for _, r := range keywordResults {
		accumulate(r.Text, (1-alpha)*r.NormScore)
	}
	for _, r := range vectorResults {
		accumulate(r.Text, alpha*r.NormScore)
	}

	results = make([]types.Result, 0, len(combined))
	for _, text := range order {
		results = append(results, types.Result{Text: text, Score: combined[text]})
	}

	// Stable sort keeps first-seen order on equal scores, so ties are
	// deterministic.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	if len(results) == 0 {
		return []types.Result{}
	}

	if h.reranker != nil {
		results = h.reranker.Rerank(ctx, query, results, topK)
	}

	return results
}

// denseRetrieve embeds the query and searches the vector store, translating
// hits into results whose Text is extracted from the conventional metadata
// keys. Hits carrying no text at all are dropped rather than merged.
func (h *HybridSearcher) denseRetrieve(ctx context.Context, query string, topK int) []types.Result {
	if h.embedder == nil || h.store == nil {
		return []types.Result{}
	}

	vector, err := h.embedder.Embed(ctx, query)
	if err != nil {
		xlog.Warn("Vector retrieval skipped: embedding failed", "error", err)
		return []types.Result{}
	}
	if len(vector) == 0 {
		xlog.Warn("Vector retrieval skipped: empty embedding")
		return []types.Result{}
	}

	hits, err := h.store.Search(ctx, vector, topK)
	if err != nil {
		xlog.Warn("Vector retrieval failed", "error", err)
		return []types.Result{}
	}

	results := make([]types.Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, types.Result{
			Text:     extractHitText(hit),
			Score:    hit.Score,
			Metadata: hit.Metadata,
		})
	}
	return results
}

// extractHitText pulls the passage text out of a vector hit, trying the
// metadata "text" and "content" keys before the top-level field.
func extractHitText(hit types.VectorHit) string {
	if t := hit.Metadata["text"]; t != "" {
		return t
	}
	if t := hit.Metadata["content"]; t != "" {
		return t
	}
	return hit.Text
}
