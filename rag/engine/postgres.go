package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/astramind/astramind/rag/interfaces"
	"github.com/astramind/astramind/rag/types"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mudler/xlog"
)

// PostgresStore is a vector store backed by PostgreSQL with the pgvector
// extension. Each collection gets its own table; chunk text travels back
// in hits through the metadata "text" key, like the chromem store.
type PostgresStore struct {
	pool           *pgxpool.Pool
	collectionName string
	tableName      string
	embedder       interfaces.Embedder
	embeddingDims  int
}

// NewPostgresStore connects to databaseURL, ensures the pgvector extension
// and the collection table exist, and returns the store. The embedding
// dimension is probed with a test embedding so the vector column matches
// the configured model.
func NewPostgresStore(ctx context.Context, collectionName, databaseURL string, embedder interfaces.Embedder) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres vector store")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	testVec, err := embedder.Embed(ctx, "dimension probe")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to probe embedding dimensions: %w", err)
	}

	store := &PostgresStore{
		pool:           pool,
		collectionName: collectionName,
		tableName:      sanitizeTableName(collectionName),
		embedder:       embedder,
		embeddingDims:  len(testVec),
	}

	if err := store.setupTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func sanitizeTableName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	return "chunks_" + name
}

func (p *PostgresStore) setupTable(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}

	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding VECTOR(%d)
		)
	`, p.tableName, p.embeddingDims))
	if err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	_, err = p.pool.Exec(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s
		USING hnsw(embedding vector_cosine_ops)
	`, p.tableName, p.tableName))
	if err != nil {
		xlog.Warn("Failed to create HNSW index, queries fall back to sequential scan", "error", err)
	}

	return nil
}

// Upsert embeds each chunk and inserts it under the given source.
func (p *PostgresStore) Upsert(ctx context.Context, chunks []string, source string, meta map[string]string) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to store")
	}

	for i, chunk := range chunks {
		vec, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		metadata := map[string]string{
			"text":   chunk,
			"source": source,
		}
		for k, v := range meta {
			metadata[k] = v
		}
		metadataJSON, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}

		_, err = p.pool.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (source, content, metadata, embedding)
			VALUES ($1, $2, $3, $4::vector)
		`, p.tableName), source, chunk, metadataJSON, formatVector(vec))
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	return nil
}

// Search returns the topK nearest neighbours of vector by cosine distance.
func (p *PostgresStore) Search(ctx context.Context, vector []float32, topK int) ([]types.VectorHit, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, p.tableName), formatVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	hits := []types.VectorHit{}
	for rows.Next() {
		var id int
		var content string
		var metadataJSON []byte
		var similarity float64
		if err := rows.Scan(&id, &content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}

		metadata := map[string]string{}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
				metadata = map[string]string{}
			}
		}

		hits = append(hits, types.VectorHit{
			ID:       fmt.Sprintf("%d", id),
			Score:    similarity,
			Text:     content,
			Metadata: metadata,
		})
	}

	return hits, rows.Err()
}

// DeleteSource removes every chunk stored under source.
func (p *PostgresStore) DeleteSource(ctx context.Context, source string) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE source = $1", p.tableName), source)
	return err
}

// Reset empties the collection table.
func (p *PostgresStore) Reset(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", p.tableName))
	return err
}

// Count returns the number of stored chunks.
func (p *PostgresStore) Count(ctx context.Context) int {
	var count int
	if err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", p.tableName)).Scan(&count); err != nil {
		xlog.Error("Failed to count chunks", "error", err)
		return 0
	}
	return count
}

// Close releases the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

func formatVector(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
