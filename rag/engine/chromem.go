package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/astramind/astramind/rag/interfaces"
	"github.com/astramind/astramind/rag/types"
	"github.com/philippgille/chromem-go"
)

// ChromemStore is a persistent vector store backed by chromem-go. Chunk
// text is stored both as document content and under the metadata "text"
// key, so hybrid search can extract it from hits without touching the
// collection again.
type ChromemStore struct {
	mu             sync.Mutex
	collectionName string
	db             *chromem.DB
	collection     *chromem.Collection
	embedder       interfaces.Embedder
	nextID         int
	concurrency    int
}

// NewChromemStore opens (or creates) a persistent chromem collection at
// path, embedding documents through the given embedder.
func NewChromemStore(collectionName, path string, embedder interfaces.Embedder, concurrency int) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database: %w", err)
	}

	store := &ChromemStore{
		collectionName: collectionName,
		db:             db,
		embedder:       embedder,
		nextID:         1,
		concurrency:    concurrency,
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, store.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	store.collection = collection

	if count := collection.Count(); count > 0 {
		store.nextID = count + 1
	}

	return store, nil
}

func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}

// Upsert stores the chunks under the given source. Metadata is copied per
// chunk and extended with the chunk text, source and chunk index.
func (s *ChromemStore) Upsert(ctx context.Context, chunks []string, source string, meta map[string]string) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	documents := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		metadata := map[string]string{
			"text":        chunk,
			"source":      source,
			"chunk_index": strconv.Itoa(i),
		}
		for k, v := range meta {
			metadata[k] = v
		}

		documents[i] = chromem.Document{
			ID:       fmt.Sprintf("%s-%d", source, s.nextID+i),
			Content:  chunk,
			Metadata: metadata,
		}
	}
	s.nextID += len(chunks)

	return s.collection.AddDocuments(ctx, documents, s.concurrency)
}

// Search returns the topK nearest neighbours of vector by cosine
// similarity. topK is clamped to the collection size; an empty collection
// yields an empty hit list.
func (s *ChromemStore) Search(ctx context.Context, vector []float32, topK int) ([]types.VectorHit, error) {
	count := s.collection.Count()
	if count == 0 {
		return []types.VectorHit{}, nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	hits := make([]types.VectorHit, len(results))
	for i, r := range results {
		hits[i] = types.VectorHit{
			ID:       r.ID,
			Score:    float64(r.Similarity),
			Text:     r.Content,
			Metadata: r.Metadata,
		}
	}
	return hits, nil
}

// DeleteSource removes every chunk stored under source.
func (s *ChromemStore) DeleteSource(ctx context.Context, source string) error {
	return s.collection.Delete(ctx, map[string]string{"source": source}, nil)
}

// Reset drops and recreates the collection.
func (s *ChromemStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.collectionName); err != nil {
		return fmt.Errorf("error deleting collection: %w", err)
	}
	collection, err := s.db.GetOrCreateCollection(s.collectionName, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("error recreating collection: %w", err)
	}
	s.collection = collection
	s.nextID = 1
	return nil
}

// Count returns the number of stored chunks.
func (s *ChromemStore) Count(ctx context.Context) int {
	return s.collection.Count()
}
