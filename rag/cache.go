package rag

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mudler/xlog"
	"github.com/redis/go-redis/v9"
)

const (
	qaKeyPrefix        = "astramind:qa:"
	embeddingKeyPrefix = "astramind:embedding:"

	redisDialTimeout = 3 * time.Second
)

// Cache is a redis-backed cache for question answers and embedding
// vectors. When redis is unreachable the cache degrades to a no-op:
// lookups miss, stores are dropped, and nothing fails.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to redis at addr. On connection failure a disabled
// cache is returned and the condition is logged.
func NewCache(addr string, db int, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: redisDialTimeout,
		ReadTimeout: redisDialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		xlog.Warn("Redis cache not reachable, caching disabled", "addr", addr, "error", err)
		return &Cache{}
	}

	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// CachedAnswer returns the cached answer for a question, if any. The
// returned answer is flagged as cached.
func (c *Cache) CachedAnswer(ctx context.Context, question string) (*Answer, bool) {
	if !c.enabled() {
		return nil, false
	}

	data, err := c.client.Get(ctx, qaKeyPrefix+strings.ToLower(question)).Bytes()
	if err != nil {
		if err != redis.Nil {
			xlog.Warn("Answer cache read failed", "error", err)
		}
		return nil, false
	}

	answer := &Answer{}
	if err := json.Unmarshal(data, answer); err != nil {
		xlog.Warn("Discarding malformed cached answer", "error", err)
		return nil, false
	}

	answer.Cached = true
	return answer, true
}

// CacheAnswer stores a question/answer pair with the configured TTL.
func (c *Cache) CacheAnswer(ctx context.Context, question string, answer *Answer) {
	if !c.enabled() {
		return
	}

	data, err := json.Marshal(answer)
	if err != nil {
		xlog.Warn("Failed to encode answer for caching", "error", err)
		return
	}
	if err := c.client.Set(ctx, qaKeyPrefix+strings.ToLower(question), data, c.ttl).Err(); err != nil {
		xlog.Warn("Failed to cache answer", "error", err)
	}
}

// Embedding returns a cached embedding vector by content hash.
func (c *Cache) Embedding(ctx context.Context, key string) ([]float32, bool) {
	if !c.enabled() {
		return nil, false
	}

	data, err := c.client.Get(ctx, embeddingKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			xlog.Warn("Embedding cache read failed", "error", err)
		}
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

// StoreEmbedding caches an embedding vector by content hash. Embeddings
// are kept longer than answers since they only change with the model.
func (c *Cache) StoreEmbedding(ctx context.Context, key string, vec []float32) {
	if !c.enabled() {
		return
	}

	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, embeddingKeyPrefix+key, data, c.ttl*12).Err(); err != nil {
		xlog.Warn("Failed to cache embedding", "error", err)
	}
}
