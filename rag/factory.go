package rag

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/astramind/astramind/rag/engine"
	"github.com/astramind/astramind/rag/interfaces"
	"github.com/astramind/astramind/rag/types"
)

func collectionStatePath(dbPath, name string) string {
	return filepath.Join(dbPath, collectionPrefix+name+".json")
}

func keywordIndexPath(dbPath, name string) string {
	return filepath.Join(dbPath, "keyword-"+name+".json")
}

// NewChromemCollection builds a collection on the embedded chromem vector
// store, persisted under dbPath.
func NewChromemCollection(name, dbPath, assetDir string, embedder interfaces.Embedder, reranker types.Reranker, maxChunkSize int) (*Collection, error) {
	store, err := engine.NewChromemStore(name, filepath.Join(dbPath, "chromem"), embedder, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create chromem store: %w", err)
	}

	return assembleCollection(name, dbPath, assetDir, embedder, store, reranker, maxChunkSize)
}

// NewPostgresCollection builds a collection on a pgvector-backed postgres
// store. Keyword index and collection state still live under dbPath.
func NewPostgresCollection(ctx context.Context, name, databaseURL, dbPath, assetDir string, embedder interfaces.Embedder, reranker types.Reranker, maxChunkSize int) (*Collection, error) {
	store, err := engine.NewPostgresStore(ctx, name, databaseURL, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres store: %w", err)
	}

	return assembleCollection(name, dbPath, assetDir, embedder, store, reranker, maxChunkSize)
}

func assembleCollection(name, dbPath, assetDir string, embedder interfaces.Embedder, store interfaces.VectorStore, reranker types.Reranker, maxChunkSize int) (*Collection, error) {
	keyword := engine.NewKeywordIndex(keywordIndexPath(dbPath, name))
	searcher := engine.NewHybridSearcher(keyword, embedder, store, reranker)
	return NewCollection(name, collectionStatePath(dbPath, name), filepath.Join(assetDir, name), keyword, store, searcher, maxChunkSize)
}
