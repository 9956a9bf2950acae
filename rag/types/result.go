package types

// Result represents a single scored passage produced by a retrieval stage.
// Results are transient: they are built fresh for every query and never
// persisted.
type Result struct {
	// Text is the passage content. It doubles as the dedup key when
	// keyword and vector results are merged.
	Text string `json:"text"`

	// Score is the raw signal score: BM25 relevance for the keyword
	// branch, cosine similarity for the vector branch, or the blended
	// weighted sum after merging.
	Score float64 `json:"score"`

	// NormScore is Score rescaled onto [0,1] via min-max within its
	// own result set, so heterogeneous signals can be combined fairly.
	NormScore float64 `json:"norm_score,omitempty"`

	// RerankScore is assigned by the reranking pass, normalized to [0,1].
	RerankScore float64 `json:"rerank_score,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// VectorHit is a nearest-neighbour match returned by a vector store.
// The passage text conventionally travels in Metadata under "text" (or
// "content"); Text is a top-level fallback for stores that set it directly.
type VectorHit struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
