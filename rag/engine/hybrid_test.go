package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/astramind/astramind/rag/engine"
	"github.com/astramind/astramind/rag/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

type fakeStore struct {
	hits []types.VectorHit
	err  error
}

func (f *fakeStore) Upsert(ctx context.Context, chunks []string, source string, meta map[string]string) error {
	return nil
}

func (f *fakeStore) Search(ctx context.Context, vector []float32, topK int) ([]types.VectorHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeStore) DeleteSource(ctx context.Context, source string) error { return nil }
func (f *fakeStore) Reset(ctx context.Context) error                       { return nil }
func (f *fakeStore) Count(ctx context.Context) int                         { return len(f.hits) }

type reverseReranker struct {
	called bool
}

func (r *reverseReranker) Rerank(ctx context.Context, query string, results []types.Result, topN int) []types.Result {
	r.called = true
	reversed := make([]types.Result, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		reversed = append(reversed, results[i])
	}
	if len(reversed) > topN {
		reversed = reversed[:topN]
	}
	return reversed
}

var _ = Describe("HybridSearcher", func() {
	var (
		tempDir  string
		keyword  *KeywordIndex
		embedder *fakeEmbedder
		store    *fakeStore
		ctx      context.Context
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "hybrid_test_*")
		Expect(err).ToNot(HaveOccurred())

		keyword = NewKeywordIndex(filepath.Join(tempDir, "keyword.json"))
		embedder = &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
		store = &fakeStore{}
		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("returns an empty slice when nothing is indexed", func() {
		searcher := NewHybridSearcher(keyword, embedder, store, nil)
		results := searcher.HybridSearch(ctx, "anything", 0.5, 5)
		Expect(results).ToNot(BeNil())
		Expect(results).To(BeEmpty())
	})

	It("degrades to keyword-only results when the vector store fails", func() {
		keyword.AddDocuments([]string{"the tax rate for imports", "unrelated cooking recipe"})
		store.err = errors.New("connection refused")

		searcher := NewHybridSearcher(keyword, embedder, store, nil)
		results := searcher.HybridSearch(ctx, "what is the tax rate", 0.5, 5)

		Expect(results).ToNot(BeEmpty())
		Expect(results[0].Text).To(Equal("the tax rate for imports"))
	})

	It("degrades to keyword-only results when embedding fails", func() {
		keyword.AddDocuments([]string{"network configuration guide"})
		embedder.err = errors.New("model offline")

		searcher := NewHybridSearcher(keyword, embedder, store, nil)
		results := searcher.HybridSearch(ctx, "what network configuration", 0.5, 5)

		Expect(results).To(HaveLen(1))
		Expect(results[0].Text).To(Equal("network configuration guide"))
	})

	It("accumulates contributions when both signals surface the same text", func() {
		keyword.AddDocuments([]string{"shared passage", "keyword only passage"})
		store.hits = []types.VectorHit{
			{Score: 0.9, Metadata: map[string]string{"text": "shared passage"}},
			{Score: 0.2, Metadata: map[string]string{"text": "vector only passage"}},
		}

		searcher := NewHybridSearcher(keyword, embedder, store, nil)
		results := searcher.HybridSearch(ctx, "what shared passage", 0.5, 5)

		Expect(results[0].Text).To(Equal("shared passage"))
		texts := make([]string, 0, len(results))
		for _, r := range results {
			texts = append(texts, r.Text)
		}
		Expect(texts).To(ContainElements("keyword only passage", "vector only passage"))
	})

	It("favours the keyword signal on factoid queries", func() {
		keyword.AddDocuments([]string{"the answer is forty two", "filler document text"})
		store.hits = []types.VectorHit{
			{Score: 0.99, Metadata: map[string]string{"text": "semantically similar musing"}},
		}

		searcher := NewHybridSearcher(keyword, embedder, store, nil)
		// A factoid query caps alpha at 0.4, so the keyword branch carries
		// weight 0.6 against the vector branch's 0.4.
		results := searcher.HybridSearch(ctx, "what is the answer", 0.9, 5)

		Expect(results[0].Text).To(Equal("the answer is forty two"))
	})

	It("drops vector hits that carry no text", func() {
		store.hits = []types.VectorHit{
			{Score: 0.8, Metadata: map[string]string{}},
		}

		searcher := NewHybridSearcher(keyword, embedder, store, nil)
		results := searcher.HybridSearch(ctx, "anything at all", 0.5, 5)
		Expect(results).To(BeEmpty())
	})

	It("falls back to the top-level hit text when metadata has none", func() {
		store.hits = []types.VectorHit{
			{Score: 0.8, Text: "plain hit text"},
		}

		searcher := NewHybridSearcher(keyword, embedder, store, nil)
		results := searcher.HybridSearch(ctx, "plain", 0.5, 5)
		Expect(results).To(HaveLen(1))
		Expect(results[0].Text).To(Equal("plain hit text"))
	})

	It("truncates the merged list to topK", func() {
		keyword.AddDocuments([]string{"doc one alpha", "doc two alpha", "doc three alpha"})

		searcher := NewHybridSearcher(keyword, embedder, store, nil)
		results := searcher.HybridSearch(ctx, "alpha", 0.5, 2)
		Expect(len(results)).To(BeNumerically("<=", 2))
	})

	It("hands the merged list to the reranker when one is configured", func() {
		keyword.AddDocuments([]string{"first about topic", "second about topic topic"})
		reranker := &reverseReranker{}

		searcher := NewHybridSearcher(keyword, embedder, store, reranker)
		results := searcher.HybridSearch(ctx, "topic", 0.5, 5)

		Expect(reranker.called).To(BeTrue())
		Expect(results).To(HaveLen(2))
	})

	It("skips the rerank stage entirely on an empty merged list", func() {
		reranker := &reverseReranker{}
		searcher := NewHybridSearcher(keyword, embedder, store, reranker)

		results := searcher.HybridSearch(ctx, "no documents", 0.5, 5)
		Expect(results).To(BeEmpty())
		Expect(reranker.called).To(BeFalse())
	})

	It("works without an embedder or store", func() {
		keyword.AddDocuments([]string{"standalone keyword corpus"})

		searcher := NewHybridSearcher(keyword, nil, nil, nil)
		results := searcher.HybridSearch(ctx, "what keyword corpus", 0.5, 5)
		Expect(results).To(HaveLen(1))
	})
})
