// Package postgres implements docrag.VectorIndex on PostgreSQL with the
// pgvector extension. Similarity search uses cosine distance with an HNSW
// index.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/docrag"
)

// IndexOption configures a postgres Index.
type IndexOption func(*Index)

// WithLogger sets a structured logger for the index.
func WithLogger(l *slog.Logger) IndexOption {
	return func(x *Index) { x.logger = l }
}

// WithTable sets the table chunks are written to, so one database can hold
// several named indexes (default "chunks").
func WithTable(name string) IndexOption {
	return func(x *Index) { x.table = name }
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Index implements docrag.VectorIndex backed by PostgreSQL + pgvector.
type Index struct {
	pool      *pgxpool.Pool
	embedding docrag.EmbeddingProvider
	table     string
	logger    *slog.Logger
}

var _ docrag.VectorIndex = (*Index)(nil)

// New creates an Index using an existing pgxpool.Pool. The caller owns the
// pool and is responsible for closing it.
func New(pool *pgxpool.Pool, embedding docrag.EmbeddingProvider, opts ...IndexOption) (*Index, error) {
	x := &Index{
		pool:      pool,
		embedding: embedding,
		table:     "chunks",
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(x)
	}
	if !identRe.MatchString(x.table) {
		return nil, fmt.Errorf("postgres: invalid table name %q", x.table)
	}
	return x, nil
}

// Init creates the pgvector extension, the chunk table, and an HNSW index.
// Safe to call multiple times (all statements are idempotent).
func (x *Index) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			metadata JSONB,
			embedding vector
		)`, x.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`,
			x.table, x.table),
	}
	for _, stmt := range stmts {
		if _, err := x.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// Add embeds one batch of chunks and inserts them with a pipelined pgx batch.
func (x *Index) Add(ctx context.Context, docs []docrag.Document) error {
	if len(docs) == 0 {
		return nil
	}
	start := time.Now()

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embs, err := x.embedding.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("postgres: embed batch: %w", err)
	}
	if len(embs) != len(docs) {
		return fmt.Errorf("postgres: embed batch: got %d vectors for %d texts", len(embs), len(docs))
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (id, text, metadata, embedding) VALUES ($1, $2, $3, $4::vector)`, x.table)
	batch := &pgx.Batch{}
	for i, d := range docs {
		metaJSON, _ := json.Marshal(d.Metadata)
		batch.Queue(stmt, docrag.NewID(), d.Text, metaJSON, serializeEmbedding(embs[i]))
	}

	br := x.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range docs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert chunk: %w", err)
		}
	}

	x.logger.Debug("postgres: batch added", "chunks", len(docs), "duration", time.Since(start))
	return nil
}

// SimilaritySearch embeds the query and asks pgvector for the closest
// chunks by cosine distance.
func (x *Index) SimilaritySearch(ctx context.Context, req docrag.SearchRequest) ([]docrag.ScoredDocument, error) {
	start := time.Now()

	embs, err := x.embedding.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("postgres: embed query: %w", err)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("postgres: embed query: no embedding returned")
	}
	embStr := serializeEmbedding(embs[0])

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	rows, err := x.pool.Query(ctx, fmt.Sprintf(
		`SELECT text, metadata, 1 - (embedding <=> $1::vector) AS score
		 FROM %s
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`, x.table),
		embStr, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}
	defer rows.Close()

	var results []docrag.ScoredDocument
	for rows.Next() {
		var text string
		var metaJSON []byte
		var score float32
		if err := rows.Scan(&text, &metaJSON, &score); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		if req.Threshold > 0 && score < req.Threshold {
			continue
		}
		doc := docrag.Document{Text: text}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &doc.Metadata)
		}
		results = append(results, docrag.ScoredDocument{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate chunks: %w", err)
	}

	x.logger.Debug("postgres: search ok", "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// serializeEmbedding renders a vector in pgvector's text format: [1,2,3].
func serializeEmbedding(emb []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range emb {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
