package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/astramind/astramind/rag/sources"
	"github.com/mudler/xlog"
)

// SourceManager refreshes external sources into their collections on a
// per-source interval.
type SourceManager struct {
	mu          sync.RWMutex
	sources     map[string][]ExternalSource
	collections map[string]*Collection
}

// NewSourceManager creates an empty source manager.
func NewSourceManager() *SourceManager {
	return &SourceManager{
		sources:     make(map[string][]ExternalSource),
		collections: make(map[string]*Collection),
	}
}

// RegisterCollection makes a collection's persisted sources known to the
// manager and triggers an immediate refresh of each.
func (sm *SourceManager) RegisterCollection(collection *Collection) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	name := collection.Name()
	sm.collections[name] = collection

	for _, source := range collection.ExternalSources() {
		sm.sources[name] = append(sm.sources[name], source)
		go sm.updateSource(name, source, collection)
	}
}

// AddSource registers a URL with a collection and refreshes it right away.
func (sm *SourceManager) AddSource(collectionName, url string, updateInterval time.Duration) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	collection, exists := sm.collections[collectionName]
	if !exists {
		return fmt.Errorf("collection %s not found", collectionName)
	}

	source := ExternalSource{
		URL:            url,
		UpdateInterval: updateInterval,
		LastUpdate:     time.Now(),
	}
	if err := collection.AddExternalSource(source); err != nil {
		return err
	}

	sm.sources[collectionName] = append(sm.sources[collectionName], source)
	go sm.updateSource(collectionName, source, collection)
	return nil
}

// RemoveSource unregisters a URL and removes its ingested content.
func (sm *SourceManager) RemoveSource(collectionName, url string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	collection, exists := sm.collections[collectionName]
	if !exists {
		return fmt.Errorf("collection %s not found", collectionName)
	}

	if err := collection.RemoveExternalSource(url); err != nil {
		return err
	}

	entry := sourceEntryName(collectionName, url)
	if collection.EntryExists(entry) {
		if err := collection.RemoveEntry(context.Background(), entry); err != nil {
			return err
		}
	}

	registered := sm.sources[collectionName]
	for i, s := range registered {
		if s.URL == url {
			sm.sources[collectionName] = append(registered[:i], registered[i+1:]...)
			break
		}
	}
	return nil
}

// updateSource downloads a source and replaces its content in the
// collection.
func (sm *SourceManager) updateSource(collectionName string, source ExternalSource, collection *Collection) {
	xlog.Info("Updating source", "collection", collectionName, "url", source.URL)

	content, err := sources.SourceRouter(source.URL)
	if err != nil {
		xlog.Error("Failed to download source", "url", source.URL, "error", err)
		return
	}

	tmpFile := filepath.Join(os.TempDir(), sourceEntryName(collectionName, source.URL))
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		xlog.Error("Failed to write source content", "url", source.URL, "error", err)
		return
	}
	defer os.Remove(tmpFile)

	if err := collection.StoreOrReplace(context.Background(), tmpFile); err != nil {
		xlog.Error("Failed to store source content", "url", source.URL, "error", err)
		return
	}

	sm.mu.Lock()
	for i, s := range sm.sources[collectionName] {
		if s.URL == source.URL {
			sm.sources[collectionName][i].LastUpdate = time.Now()
			break
		}
	}
	sm.mu.Unlock()

	xlog.Info("Source updated", "collection", collectionName, "url", source.URL)
}

// Start launches the background refresh loop.
func (sm *SourceManager) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			sm.mu.RLock()
			for collectionName, registered := range sm.sources {
				collection := sm.collections[collectionName]
				for _, source := range registered {
					if time.Since(source.LastUpdate) >= source.UpdateInterval {
						go sm.updateSource(collectionName, source, collection)
					}
				}
			}
			sm.mu.RUnlock()
		}
	}()
}

func sourceEntryName(collectionName, url string) string {
	return fmt.Sprintf("source-%s-%s.txt", collectionName, sanitizeURL(url))
}

// sanitizeURL turns a URL into a filesystem-safe entry name.
func sanitizeURL(url string) string {
	replacer := strings.NewReplacer(
		"://", "-", "/", "-", "?", "-", "&", "-", "=", "-",
		"#", "-", "@", "-", ":", "-", ".", "-", "+", "-", " ", "-",
	)
	sanitized := replacer.Replace(strings.ToLower(url))
	for strings.Contains(sanitized, "--") {
		sanitized = strings.ReplaceAll(sanitized, "--", "-")
	}
	sanitized = strings.Trim(sanitized, "-")
	if len(sanitized) > 200 {
		sanitized = sanitized[:200]
	}
	return sanitized
}
