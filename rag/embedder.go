package rag

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
)

// maxEmbeddingChars keeps embedding input within a safe length for the
// model.
const maxEmbeddingChars = 2000

// OpenAIEmbedder produces embedding vectors through the OpenAI-compatible
// API, with an optional redis-backed vector cache keyed by content hash.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	cache  *Cache
}

// NewOpenAIEmbedder creates an embedder. cache may be nil to disable
// caching.
func NewOpenAIEmbedder(client *openai.Client, model string, cache *Cache) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: model, cache: cache}
}

// Embed returns the embedding vector for text, serving repeated texts from
// the cache.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = normalizeForEmbedding(text)
	key := textHash(text)

	if vec, ok := e.cache.Embedding(ctx, key); ok {
		return vec, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no response from embeddings API")
	}

	vec := resp.Data[0].Embedding
	e.cache.StoreEmbedding(ctx, key, vec)
	return vec, nil
}

func normalizeForEmbedding(text string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	return clipText(text, maxEmbeddingChars)
}

// clipText caps text at maxChars bytes without splitting a multi-byte
// rune.
func clipText(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func textHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
