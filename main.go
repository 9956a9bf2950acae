package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mudler/xlog"
)

type config struct {
	ListenAddress string

	OpenAIKey      string
	OpenAIBaseURL  string
	EmbeddingModel string
	LLMModel       string
	RerankerModel  string

	VectorEngine string
	DatabaseURL  string

	RedisAddr string
	CacheTTL  time.Duration
	MemoryTTL time.Duration

	CollectionDBPath string
	FileAssets       string
	MaxChunkSize     int
}

func loadConfig() config {
	if err := godotenv.Load(); err != nil {
		xlog.Debug("No .env file loaded", "error", err)
	}

	return config{
		ListenAddress:  envOr("LISTEN_ADDRESS", ":8080"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_API_BASE_URL"),
		EmbeddingModel: envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
		LLMModel:       envOr("LLM_MODEL", "gpt-4o-mini"),
		RerankerModel:  os.Getenv("RERANKER_MODEL"),

		VectorEngine: envOr("VECTOR_ENGINE", "chromem"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		RedisAddr: envOr("REDIS_ADDR", "localhost:6379"),
		CacheTTL:  envDurationOr("CACHE_TTL", 2*time.Hour),
		MemoryTTL: envDurationOr("MEMORY_TTL", 24*time.Hour),

		CollectionDBPath: envOr("COLLECTION_DB_PATH", "db"),
		FileAssets:       envOr("FILE_ASSETS", "assets"),
		MaxChunkSize:     envIntOr("MAX_CHUNK_SIZE", 1000),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		xlog.Warn("Ignoring invalid integer env value", "key", key, "value", v)
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		xlog.Warn("Ignoring invalid duration env value", "key", key, "value", v)
	}
	return fallback
}

func main() {
	cfg := loadConfig()

	if err := os.MkdirAll(cfg.CollectionDBPath, 0755); err != nil {
		xlog.Error("Failed to create collection db directory", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.FileAssets, 0755); err != nil {
		xlog.Error("Failed to create asset directory", "error", err)
		os.Exit(1)
	}

	startAPI(cfg)
}
