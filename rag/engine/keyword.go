package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/astramind/astramind/pkg/tokenizer"
	"github.com/astramind/astramind/rag/types"
	"github.com/mudler/xlog"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// KeywordIndex ranks an in-memory document corpus by BM25 term relevance,
// with JSON persistence so the corpus survives restarts. Documents are
// insertion-ordered and immutable once added; the only way to remove them
// is a full Reset.
//
// The index is mutated by AddDocuments and Reset and read by every
// Retrieve, so all three internal collections sit behind a read-write lock.
type KeywordIndex struct {
	mu            sync.RWMutex
	path          string
	documents     []string
	tokenizedDocs [][]string

	// ranking state, rebuilt over the full corpus on every mutation
	termFreqs  []map[string]int
	docFreq    map[string]int
	docLengths []int
	avgDocLen  float64
}

type keywordIndexState struct {
	Documents     []string   `json:"documents"`
	TokenizedDocs [][]string `json:"tokenized_docs"`
}

// NewKeywordIndex creates a keyword index backed by the JSON file at path.
// A missing or corrupt file means "start empty": load failures are logged
// and never propagated.
func NewKeywordIndex(path string) *KeywordIndex {
	idx := &KeywordIndex{
		path:    path,
		docFreq: map[string]int{},
	}

	if err := idx.load(); err != nil {
		xlog.Warn("Failed to load keyword index, starting empty", "path", path, "error", err)
	}

	return idx
}

// AddDocuments appends new documents to the corpus and rebuilds the ranking
// state over the full corpus. Blank strings and exact duplicates of already
// indexed documents are filtered out; an all-filtered batch is a no-op.
// Returns the number of documents actually indexed.
//
// The rebuild is O(total corpus size) per call. That is acceptable because
// indexing happens at document-upload time, not query time.
func (i *KeywordIndex) AddDocuments(docs []string) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	seen := make(map[string]struct{}, len(i.documents))
	for _, d := range i.documents {
		seen[d] = struct{}{}
	}

	added := 0
	for _, d := range docs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		i.documents = append(i.documents, d)
		i.tokenizedDocs = append(i.tokenizedDocs, tokenizer.Tokenize(d))
		added++
	}

	if added == 0 {
		return 0
	}

	i.rebuild()

	if err := i.save(); err != nil {
		xlog.Warn("Failed to persist keyword index, continuing in-memory", "path", i.path, "error", err)
	}

	return added
}

// Retrieve scores every document against the query and returns the topK
// best matches in descending score order, ties broken by insertion order.
// An empty index or a query with no tokens yields an empty result list.
func (i *KeywordIndex) Retrieve(query string, topK int) []types.Result {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.documents) == 0 || topK <= 0 {
		return []types.Result{}
	}

	queryTokens := tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return []types.Result{}
	}

	results := make([]types.Result, len(i.documents))
	for d := range i.documents {
		results[d] = types.Result{
			Text:  i.documents[d],
			Score: i.score(queryTokens, d),
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// score computes the Okapi BM25 relevance of document d for the query
// tokens: idf(t) * tf*(k1+1) / (tf + k1*(1-b+b*len/avgLen)) summed over
// query terms, with idf(t) = ln((N-df+0.5)/(df+0.5) + 1).
func (i *KeywordIndex) score(queryTokens []string, d int) float64 {
	n := float64(len(i.documents))
	lenNorm := bm25K1 * (1 - bm25B + bm25B*float64(i.docLengths[d])/i.avgDocLen)

	var score float64
	for _, t := range queryTokens {
		tf := float64(i.termFreqs[d][t])
		if tf == 0 {
			continue
		}
		df := float64(i.docFreq[t])
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		score += idf * tf * (bm25K1 + 1) / (tf + lenNorm)
	}
	return score
}

// Reset clears the corpus, tokenizations and ranking state, and deletes the
// backing file. Deletion failures are logged and swallowed; Reset always
// succeeds.
func (i *KeywordIndex) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.documents = nil
	i.tokenizedDocs = nil
	i.termFreqs = nil
	i.docFreq = map[string]int{}
	i.docLengths = nil
	i.avgDocLen = 0

	if err := os.Remove(i.path); err != nil && !os.IsNotExist(err) {
		xlog.Warn("Failed to delete keyword index file", "path", i.path, "error", err)
	}
}

// Count returns the number of indexed documents.
func (i *KeywordIndex) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.documents)
}

// Documents returns a copy of the corpus in insertion order.
func (i *KeywordIndex) Documents() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docs := make([]string, len(i.documents))
	copy(docs, i.documents)
	return docs
}

// rebuild recomputes term frequencies, document frequencies and length
// statistics over the full corpus. Callers must hold the write lock.
func (i *KeywordIndex) rebuild() {
	i.termFreqs = make([]map[string]int, len(i.tokenizedDocs))
	i.docFreq = map[string]int{}
	i.docLengths = make([]int, len(i.tokenizedDocs))

	totalLen := 0
	for d, tokens := range i.tokenizedDocs {
		freqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freqs[t]++
		}
		for t := range freqs {
			i.docFreq[t]++
		}
		i.termFreqs[d] = freqs
		i.docLengths[d] = len(tokens)
		totalLen += len(tokens)
	}

	if len(i.tokenizedDocs) > 0 {
		i.avgDocLen = float64(totalLen) / float64(len(i.tokenizedDocs))
	} else {
		i.avgDocLen = 0
	}
}

func (i *KeywordIndex) load() error {
	data, err := os.ReadFile(i.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	state := keywordIndexState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("corrupt keyword index file: %w", err)
	}
	if len(state.Documents) != len(state.TokenizedDocs) {
		return fmt.Errorf("corrupt keyword index file: %d documents but %d tokenizations",
			len(state.Documents), len(state.TokenizedDocs))
	}

	i.documents = state.Documents
	i.tokenizedDocs = state.TokenizedDocs
	i.rebuild()
	return nil
}

func (i *KeywordIndex) save() error {
	data, err := json.Marshal(keywordIndexState{
		Documents:     i.documents,
		TokenizedDocs: i.tokenizedDocs,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(i.path), 0755); err != nil {
		return err
	}

	return os.WriteFile(i.path, data, 0644)
}
