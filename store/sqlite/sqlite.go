// Package sqlite implements docrag.VectorIndex using pure-Go SQLite with
// in-process brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/nevindra/docrag"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// IndexOption configures a SQLite Index.
type IndexOption func(*Index)

// WithLogger sets a structured logger for the index. When set, every
// operation logs timing and row counts at debug level.
func WithLogger(l *slog.Logger) IndexOption {
	return func(x *Index) { x.logger = l }
}

// WithTable sets the table chunks are written to, so one database file can
// hold several named indexes (default "chunks").
func WithTable(name string) IndexOption {
	return func(x *Index) { x.table = name }
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Index implements docrag.VectorIndex backed by a local SQLite file.
// Embeddings are stored as JSON text and similarity search runs in-process
// with brute-force cosine similarity.
type Index struct {
	db        *sql.DB
	embedding docrag.EmbeddingProvider
	table     string
	logger    *slog.Logger
}

var _ docrag.VectorIndex = (*Index)(nil)

// New creates an Index on a local SQLite file. The pool is capped at one
// open connection so concurrent batch writers serialize through it instead
// of tripping SQLITE_BUSY.
func New(dbPath string, embedding docrag.EmbeddingProvider, opts ...IndexOption) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	x := &Index{
		db:        db,
		embedding: embedding,
		table:     "chunks",
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(x)
	}
	if !identRe.MatchString(x.table) {
		return nil, fmt.Errorf("sqlite: invalid table name %q", x.table)
	}
	return x, nil
}

// Init creates the chunk table. Safe to call multiple times.
func (x *Index) Init(ctx context.Context) error {
	_, err := x.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		metadata TEXT,
		embedding TEXT NOT NULL
	)`, x.table))
	if err != nil {
		return fmt.Errorf("sqlite: init: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (x *Index) Close() error { return x.db.Close() }

// Add embeds one batch of chunks and inserts them in a single transaction.
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
		return fmt.Errorf("sqlite: embed batch: %w", err)
	}
	if len(embs) != len(docs) {
		return fmt.Errorf("sqlite: embed batch: got %d vectors for %d texts", len(embs), len(docs))
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`INSERT INTO %s (id, text, metadata, embedding) VALUES (?, ?, ?, ?)`, x.table)
	for i, d := range docs {
		metaJSON, _ := json.Marshal(d.Metadata)
		embJSON, _ := json.Marshal(embs[i])
		if _, err := tx.ExecContext(ctx, stmt, docrag.NewID(), d.Text, string(metaJSON), string(embJSON)); err != nil {
			return fmt.Errorf("sqlite: insert chunk: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}

	x.logger.Debug("sqlite: batch added", "chunks", len(docs), "duration", time.Since(start))
	return nil
}

// SimilaritySearch embeds the query and scans all stored chunks with
// brute-force cosine similarity, returning the topK above the threshold.
func (x *Index) SimilaritySearch(ctx context.Context, req docrag.SearchRequest) ([]docrag.ScoredDocument, error) {
	start := time.Now()

	embs, err := x.embedding.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("sqlite: embed query: %w", err)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("sqlite: embed query: no embedding returned")
	}
	query := embs[0]

	rows, err := x.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT text, metadata, embedding FROM %s`, x.table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	defer rows.Close()

	var results []docrag.ScoredDocument
	scanned := 0
	for rows.Next() {
		var text string
		var metaJSON, embJSON sql.NullString
		if err := rows.Scan(&text, &metaJSON, &embJSON); err != nil {
			return nil, fmt.Errorf("sqlite: scan chunk: %w", err)
		}
		scanned++

		var stored []float32
		if err := json.Unmarshal([]byte(embJSON.String), &stored); err != nil {
			continue
		}
		score := cosineSimilarity(query, stored)
		if req.Threshold > 0 && score < req.Threshold {
			continue
		}

		doc := docrag.Document{Text: text}
		if metaJSON.Valid && metaJSON.String != "" {
			_ = json.Unmarshal([]byte(metaJSON.String), &doc.Metadata)
		}
		results = append(results, docrag.ScoredDocument{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if req.TopK > 0 && len(results) > req.TopK {
		results = results[:req.TopK]
	}

	x.logger.Debug("sqlite: search ok",
		"scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
