package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai"

	"github.com/astramind/astramind/rag"
	"github.com/astramind/astramind/rag/rerank"
	"github.com/astramind/astramind/rag/types"
)

type apiState struct {
	cfg config

	// collections is read by every handler while createCollection writes
	// it, so access goes through the helpers below.
	mu          sync.RWMutex
	collections map[string]*rag.Collection

	embedder  *rag.OpenAIEmbedder
	generator *rag.AnswerGenerator
	reranker  types.Reranker
	cache     *rag.Cache
	memory    *rag.ChatMemory
	sources   *rag.SourceManager
}

func (s *apiState) collection(name string) (*rag.Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	return c, ok
}

func (s *apiState) addCollection(name string, c *rag.Collection) {
	s.mu.Lock()
	s.collections[name] = c
	s.mu.Unlock()
}

func (s *apiState) collectionNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names
}

func (s *apiState) newCollection(ctx context.Context, name string) (*rag.Collection, error) {
	if s.cfg.VectorEngine == "postgres" {
		return rag.NewPostgresCollection(ctx, name, s.cfg.DatabaseURL, s.cfg.CollectionDBPath, s.cfg.FileAssets, s.embedder, s.reranker, s.cfg.MaxChunkSize)
	}
	return rag.NewChromemCollection(name, s.cfg.CollectionDBPath, s.cfg.FileAssets, s.embedder, s.reranker, s.cfg.MaxChunkSize)
}

func startAPI(cfg config) {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	clientConfig := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	cache := rag.NewCache(cfg.RedisAddr, 0, cfg.CacheTTL)
	memory := rag.NewChatMemory(cfg.RedisAddr, 1, cfg.MemoryTTL)

	var reranker types.Reranker
	if cfg.RerankerModel != "" {
		reranker = rerank.New(rerank.NewOpenAIJudge(client, cfg.RerankerModel))
	}

	state := &apiState{
		cfg:         cfg,
		collections: map[string]*rag.Collection{},
		embedder:    rag.NewOpenAIEmbedder(client, cfg.EmbeddingModel, cache),
		generator:   rag.NewAnswerGenerator(client, cfg.LLMModel),
		reranker:    reranker,
		cache:       cache,
		memory:      memory,
		sources:     rag.NewSourceManager(),
	}

	// Reopen collections that already have state on disk.
	for _, name := range rag.ListAllCollections(cfg.CollectionDBPath) {
		collection, err := state.newCollection(context.Background(), name)
		if err != nil {
			xlog.Error("Failed to reopen collection", "collection", name, "error", err)
			continue
		}
		state.addCollection(name, collection)
		state.sources.RegisterCollection(collection)
	}
	state.sources.Start()

	e.GET("/", health)
	e.POST("/api/collections", createCollection(state))
	e.GET("/api/collections", listCollections(state))
	e.POST("/api/collections/:name/upload", uploadFile(state))
	e.GET("/api/collections/:name/entries", listEntries(state))
	e.POST("/api/collections/:name/search", search(state))
	e.POST("/api/collections/:name/reset", reset(state))
	e.DELETE("/api/collections/:name/entry/delete", deleteEntry(state))
	e.POST("/api/collections/:name/sources", addSource(state))
	e.DELETE("/api/collections/:name/sources", removeSource(state))
	e.GET("/api/collections/:name/ask", ask(state))
	e.POST("/api/collections/:name/chat", chat(state))

	e.Logger.Fatal(e.Start(cfg.ListenAddress))
}

func errorMessage(message string) map[string]string {
	return map[string]string{"error": message}
}

func health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func createCollection(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		type request struct {
			Name string `json:"name"`
		}

		r := new(request)
		if err := c.Bind(r); err != nil || r.Name == "" {
			return c.JSON(http.StatusBadRequest, errorMessage("Invalid request"))
		}
		if _, exists := state.collection(r.Name); exists {
			return c.JSON(http.StatusConflict, errorMessage("Collection already exists"))
		}

		collection, err := state.newCollection(c.Request().Context(), r.Name)
		if err != nil {
			xlog.Error("Failed to create collection", "collection", r.Name, "error", err)
			return c.JSON(http.StatusInternalServerError, errorMessage("Failed to create collection"))
		}

		state.addCollection(r.Name, collection)
		state.sources.RegisterCollection(collection)
		return c.JSON(http.StatusCreated, map[string]string{"name": r.Name})
	}
}

func listCollections(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, state.collectionNames())
	}
}

func uploadFile(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		collection, exists := state.collection(c.Param("name"))
		if !exists {
			return c.JSON(http.StatusNotFound, errorMessage("Collection not found"))
		}

		file, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorMessage("Missing file"))
		}

		src, err := file.Open()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errorMessage("Failed to open uploaded file"))
		}
		defer src.Close()

		tmpPath := filepath.Join(os.TempDir(), filepath.Base(file.Filename))
		dst, err := os.Create(tmpPath)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errorMessage("Failed to store uploaded file"))
		}
		defer os.Remove(tmpPath)

		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			return c.JSON(http.StatusInternalServerError, errorMessage("Failed to store uploaded file"))
		}
		dst.Close()

		if err := collection.Ingest(c.Request().Context(), tmpPath); err != nil {
			xlog.Error("Ingestion failed", "file", file.Filename, "error", err)
			return c.JSON(http.StatusInternalServerError, errorMessage(fmt.Sprintf("Failed to ingest file: %v", err)))
		}

		return c.JSON(http.StatusOK, collection.ListDocuments())
	}
}

func listEntries(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		collection, exists := state.collection(c.Param("name"))
		if !exists {
			return c.JSON(http.StatusNotFound, errorMessage("Collection not found"))
		}
		return c.JSON(http.StatusOK, collection.ListDocuments())
	}
}

func search(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		collection, exists := state.collection(c.Param("name"))
		if !exists {
			return c.JSON(http.StatusNotFound, errorMessage("Collection not found"))
		}

		type request struct {
			Query      string  `json:"query"`
			Alpha      float64 `json:"alpha"`
			MaxResults int     `json:"max_results"`
		}

		r := new(request)
		if err := c.Bind(r); err != nil || r.Query == "" {
			return c.JSON(http.StatusBadRequest, errorMessage("Invalid request"))
		}
		if r.MaxResults <= 0 {
			r.MaxResults = 5
		}
		if r.Alpha <= 0 || r.Alpha > 1 {
			r.Alpha = 0.5
		}

		return c.JSON(http.StatusOK, collection.Search(c.Request().Context(), r.Query, r.Alpha, r.MaxResults))
	}
}

func reset(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		collection, exists := state.collection(c.Param("name"))
		if !exists {
			return c.JSON(http.StatusNotFound, errorMessage("Collection not found"))
		}
		if err := collection.Reset(c.Request().Context()); err != nil {
			return c.JSON(http.StatusInternalServerError, errorMessage("Failed to reset collection"))
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
	}
}

func deleteEntry(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		collection, exists := state.collection(c.Param("name"))
		if !exists {
			return c.JSON(http.StatusNotFound, errorMessage("Collection not found"))
		}

		type request struct {
			Entry string `json:"entry"`
		}

		r := new(request)
		if err := c.Bind(r); err != nil || r.Entry == "" {
			return c.JSON(http.StatusBadRequest, errorMessage("Invalid request"))
		}
		if err := collection.RemoveEntry(c.Request().Context(), r.Entry); err != nil {
			return c.JSON(http.StatusInternalServerError, errorMessage("Failed to remove entry"))
		}

		return c.JSON(http.StatusOK, collection.ListDocuments())
	}
}

func addSource(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		name := c.Param("name")
		if _, exists := state.collection(name); !exists {
			return c.JSON(http.StatusNotFound, errorMessage("Collection not found"))
		}

		type request struct {
			URL            string `json:"url"`
			UpdateInterval string `json:"update_interval"`
		}

		r := new(request)
		if err := c.Bind(r); err != nil || r.URL == "" {
			return c.JSON(http.StatusBadRequest, errorMessage("Invalid request"))
		}

		interval := time.Hour
		if r.UpdateInterval != "" {
			d, err := time.ParseDuration(r.UpdateInterval)
			if err != nil {
				return c.JSON(http.StatusBadRequest, errorMessage("Invalid update interval"))
			}
			interval = d
		}

		if err := state.sources.AddSource(name, r.URL, interval); err != nil {
			return c.JSON(http.StatusInternalServerError, errorMessage(err.Error()))
		}
		return c.JSON(http.StatusCreated, map[string]string{"url": r.URL})
	}
}

func removeSource(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		name := c.Param("name")
		if _, exists := state.collection(name); !exists {
			return c.JSON(http.StatusNotFound, errorMessage("Collection not found"))
		}

		type request struct {
			URL string `json:"url"`
		}

		r := new(request)
		if err := c.Bind(r); err != nil || r.URL == "" {
			return c.JSON(http.StatusBadRequest, errorMessage("Invalid request"))
		}
		if err := state.sources.RemoveSource(name, r.URL); err != nil {
			return c.JSON(http.StatusInternalServerError, errorMessage(err.Error()))
		}
		return c.JSON(http.StatusOK, map[string]string{"url": r.URL})
	}
}

func ask(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		question := c.QueryParam("question")
		if question == "" {
			return c.JSON(http.StatusBadRequest, errorMessage("Missing question"))
		}

		collection, exists := state.collection(c.Param("name"))
		if !exists {
			return c.JSON(http.StatusNotFound, errorMessage("Collection not found"))
		}

		ctx := c.Request().Context()
		if cached, ok := state.cache.CachedAnswer(ctx, question); ok {
			return c.JSON(http.StatusOK, cached)
		}

		results := collection.Search(ctx, question, 0.5, 5)
		contexts := make([]string, 0, len(results))
		for _, r := range results {
			contexts = append(contexts, r.Text)
		}

		text, err := state.generator.GenerateAnswer(ctx, contexts, question)
		if err != nil {
			xlog.Error("Answer generation failed", "error", err)
			return c.JSON(http.StatusInternalServerError, errorMessage("Failed to generate answer"))
		}

		answer := &rag.Answer{
			Question:    question,
			ContextUsed: contexts,
			Answer:      text,
			Timestamp:   time.Now(),
		}
		state.cache.CacheAnswer(ctx, question, answer)
		return c.JSON(http.StatusOK, answer)
	}
}

const chatSummaryThreshold = 10

func chat(state *apiState) func(c echo.Context) error {
	return func(c echo.Context) error {
		collection, exists := state.collection(c.Param("name"))
		if !exists {
			return c.JSON(http.StatusNotFound, errorMessage("Collection not found"))
		}

		type request struct {
			Session string `json:"session"`
			Message string `json:"message"`
		}

		r := new(request)
		if err := c.Bind(r); err != nil || r.Message == "" || r.Session == "" {
			return c.JSON(http.StatusBadRequest, errorMessage("Invalid request"))
		}

		ctx := c.Request().Context()

		history := state.memory.History(ctx, r.Session)
		if len(history) > 5 {
			history = history[len(history)-5:]
		}

		results := collection.Search(ctx, r.Message, 0.5, 5)
		contexts := make([]string, 0, len(results)+len(history))
		for _, msg := range history {
			contexts = append(contexts, msg.Role+": "+msg.Content)
		}
		for _, res := range results {
			contexts = append(contexts, res.Text)
		}

		text, err := state.generator.GenerateAnswer(ctx, contexts, r.Message)
		if err != nil {
			xlog.Error("Chat answer generation failed", "error", err)
			return c.JSON(http.StatusInternalServerError, errorMessage("Failed to generate answer"))
		}

		state.memory.Append(ctx, r.Session, "user", r.Message)
		state.memory.Append(ctx, r.Session, "assistant", text)
		state.memory.SummarizeIfNeeded(ctx, r.Session, chatSummaryThreshold, func(ctx context.Context, transcript string) (string, error) {
			return state.generator.GenerateAnswer(ctx, []string{transcript}, "Summarize this conversation in a short paragraph.")
		})

		return c.JSON(http.StatusOK, map[string]string{
			"session": r.Session,
			"answer":  text,
		})
	}
}
