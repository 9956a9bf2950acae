package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/astramind/astramind/rag/engine"
	"github.com/astramind/astramind/rag/interfaces"
	"github.com/astramind/astramind/rag/types"
	"github.com/mudler/xlog"
)

const collectionPrefix = "collection-"

// ExternalSource is a URL whose content is periodically refreshed into a
// collection.
type ExternalSource struct {
	URL            string        `json:"url"`
	UpdateInterval time.Duration `json:"update_interval"`
	LastUpdate     time.Time     `json:"last_update"`
}

type collectionState struct {
	Files   []string            `json:"files"`
	Chunks  map[string][]string `json:"chunks,omitempty"`
	Sources []ExternalSource    `json:"sources,omitempty"`
}

// Collection is one knowledge base: a keyword index and a vector store fed
// by the same ingestion pipeline, queried through a hybrid searcher. The
// entry list, the indexed chunks per entry and the registered external
// sources persist in a JSON state file next to the index data; the chunk
// record is what keyword rebuilds run from, since entries ingested from
// strings have no asset file to re-read.
type Collection struct {
	mu           sync.Mutex
	name         string
	statePath    string
	assetDir     string
	maxChunkSize int
	files        []string
	chunks       map[string][]string
	sources      []ExternalSource

	keyword  *engine.KeywordIndex
	store    interfaces.VectorStore
	searcher *engine.HybridSearcher
}

// NewCollection assembles a collection from its parts, loading any prior
// state file.
func NewCollection(name, statePath, assetDir string, keyword *engine.KeywordIndex, store interfaces.VectorStore, searcher *engine.HybridSearcher, maxChunkSize int) (*Collection, error) {
	if err := os.MkdirAll(assetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}

	c := &Collection{
		name:         name,
		statePath:    statePath,
		assetDir:     assetDir,
		maxChunkSize: maxChunkSize,
		chunks:       map[string][]string{},
		keyword:      keyword,
		store:        store,
		searcher:     searcher,
	}

	data, err := os.ReadFile(statePath)
	switch {
	case os.IsNotExist(err):
		if err := c.save(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read collection state: %w", err)
	default:
		state := collectionState{}
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("corrupt collection state: %w", err)
		}
		c.files = state.Files
		c.sources = state.Sources
		if state.Chunks != nil {
			c.chunks = state.Chunks
		}
	}

	return c, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Search runs a hybrid query against the collection.
func (c *Collection) Search(ctx context.Context, query string, alpha float64, topK int) []types.Result {
	return c.searcher.HybridSearch(ctx, query, alpha, topK)
}

// Ingest copies a file into the asset directory, extracts and chunks its
// text, and indexes the chunks in both the keyword index and the vector
// store.
func (c *Collection) Ingest(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := filepath.Base(path)
	asset := filepath.Join(c.assetDir, entry)
	if path != asset {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		if err := os.WriteFile(asset, content, 0644); err != nil {
			return fmt.Errorf("failed to copy file into collection: %w", err)
		}
	}

	chunks, err := chunkFile(asset, c.maxChunkSize)
	if err != nil {
		return err
	}
	if err := c.index(ctx, entry, chunks, map[string]string{"type": "file"}); err != nil {
		return err
	}

	if !c.hasEntry(entry) {
		c.files = append(c.files, entry)
	}
	return c.save()
}

// IngestStrings indexes pre-extracted text under a source identifier.
func (c *Collection) IngestStrings(ctx context.Context, source string, chunks []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.index(ctx, source, chunks, map[string]string{"type": "inline"}); err != nil {
		return err
	}

	if !c.hasEntry(source) {
		c.files = append(c.files, source)
	}
	return c.save()
}

// StoreOrReplace ingests a file, first removing any previously ingested
// entry with the same name. Used by the source manager to refresh external
// content.
func (c *Collection) StoreOrReplace(ctx context.Context, path string) error {
	entry := filepath.Base(path)
	if c.EntryExists(entry) {
		if err := c.RemoveEntry(ctx, entry); err != nil {
			return err
		}
	}
	return c.Ingest(ctx, path)
}

// index feeds chunks to both retrieval signals. Callers hold the lock.
func (c *Collection) index(ctx context.Context, source string, chunks []string, meta map[string]string) error {
	filtered := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) != "" {
			filtered = append(filtered, chunk)
		}
	}
	if len(filtered) == 0 {
		return fmt.Errorf("no indexable text in %s", source)
	}

	added := c.keyword.AddDocuments(filtered)
	xlog.Debug("Indexed chunks in keyword index", "collection", c.name, "source", source, "added", added)

	if err := c.store.Upsert(ctx, filtered, source, meta); err != nil {
		return fmt.Errorf("failed to store chunks in vector store: %w", err)
	}

	c.chunks[source] = filtered
	return nil
}

// ListDocuments returns the ingested entries in insertion order.
func (c *Collection) ListDocuments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	files := make([]string, len(c.files))
	copy(files, c.files)
	return files
}

// EntryExists reports whether an entry with this name was ingested.
func (c *Collection) EntryExists(entry string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasEntry(filepath.Base(entry))
}

func (c *Collection) hasEntry(entry string) bool {
	for _, f := range c.files {
		if f == entry {
			return true
		}
	}
	return false
}

// RemoveEntry removes an ingested entry: its asset file (if any), its
// vectors and its keyword contribution. The keyword index has no
// per-source deletion, so it is rebuilt from the recorded chunks of the
// remaining entries.
func (c *Collection) RemoveEntry(ctx context.Context, entry string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry = filepath.Base(entry)
	found := false
	for i, f := range c.files {
		if f == entry {
			c.files = append(c.files[:i], c.files[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("entry not found: %s", entry)
	}

	if err := os.Remove(filepath.Join(c.assetDir, entry)); err != nil && !os.IsNotExist(err) {
		xlog.Warn("Failed to remove asset file", "entry", entry, "error", err)
	}

	if err := c.store.DeleteSource(ctx, entry); err != nil {
		return fmt.Errorf("failed to delete vectors for %s: %w", entry, err)
	}

	delete(c.chunks, entry)
	c.rebuildKeywordIndex()
	return c.save()
}

// rebuildKeywordIndex refills a fresh keyword index from the recorded
// chunks of the remaining entries, in insertion order. Callers hold the
// lock.
func (c *Collection) rebuildKeywordIndex() {
	c.keyword.Reset()
	for _, f := range c.files {
		chunks, ok := c.chunks[f]
		if !ok {
			xlog.Warn("No recorded chunks for entry during keyword rebuild", "entry", f)
			continue
		}
		c.keyword.AddDocuments(chunks)
	}
}

// Reset clears the collection: asset files, state, keyword index and
// vector store.
func (c *Collection) Reset(ctx context.Context) error {
	c.mu.Lock()
	for _, f := range c.files {
		os.Remove(filepath.Join(c.assetDir, f))
	}
	c.files = nil
	c.chunks = map[string][]string{}
	c.sources = nil
	if err := c.save(); err != nil {
		xlog.Warn("Failed to persist collection state during reset", "error", err)
	}
	c.mu.Unlock()

	c.keyword.Reset()
	return c.store.Reset(ctx)
}

// AddExternalSource registers a URL for periodic refresh.
func (c *Collection) AddExternalSource(source ExternalSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.sources {
		if s.URL == source.URL {
			return fmt.Errorf("source already registered: %s", source.URL)
		}
	}
	c.sources = append(c.sources, source)
	return c.save()
}

// RemoveExternalSource unregisters a URL.
func (c *Collection) RemoveExternalSource(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.sources {
		if s.URL == url {
			c.sources = append(c.sources[:i], c.sources[i+1:]...)
			return c.save()
		}
	}
	return fmt.Errorf("source not registered: %s", url)
}

// ExternalSources returns the registered external sources.
func (c *Collection) ExternalSources() []ExternalSource {
	c.mu.Lock()
	defer c.mu.Unlock()

	sources := make([]ExternalSource, len(c.sources))
	copy(sources, c.sources)
	return sources
}

func (c *Collection) save() error {
	data, err := json.Marshal(collectionState{Files: c.files, Chunks: c.chunks, Sources: c.sources})
	if err != nil {
		return err
	}
	return os.WriteFile(c.statePath, data, 0644)
}

// ListAllCollections lists the collections that have state files under
// dbPath.
func ListAllCollections(dbPath string) []string {
	collections := []string{}
	files, err := os.ReadDir(dbPath)
	if err != nil {
		return collections
	}

	for _, f := range files {
		if strings.HasPrefix(f.Name(), collectionPrefix) && strings.HasSuffix(f.Name(), ".json") {
			collections = append(collections, strings.TrimPrefix(strings.TrimSuffix(f.Name(), ".json"), collectionPrefix))
		}
	}
	return collections
}
