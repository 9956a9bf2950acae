// Package interfaces defines the collaborator contracts the retrieval core
// depends on. The core never talks to a model provider or vector database
// directly; it consumes these narrow interfaces so the surrounding wiring
// can swap implementations without touching ranking logic.
package interfaces

import (
	"context"

	"github.com/astramind/astramind/rag/types"
)

// Embedder produces a fixed-dimension embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is a nearest-neighbour index over embedded text chunks.
type VectorStore interface {
	// Upsert embeds and stores chunks under a source identifier. The
	// chunk text is kept in metadata so search hits carry it back.
	Upsert(ctx context.Context, chunks []string, source string, meta map[string]string) error

	// Search returns the topK nearest neighbours of vector by cosine
	// similarity (or an equivalent metric).
	Search(ctx context.Context, vector []float32, topK int) ([]types.VectorHit, error)

	// DeleteSource removes every chunk stored under source.
	DeleteSource(ctx context.Context, source string) error

	Reset(ctx context.Context) error
	Count(ctx context.Context) int
}

// RelevanceJudge asks a model to score candidate snippets against a query.
// It returns the raw model output; the response may be malformed or wrapped
// in prose, so callers must parse it defensively.
type RelevanceJudge interface {
	Judge(ctx context.Context, query string, snippets []string) (string, error)
}
