// Package sqlite implements the snapshot store and the vector index on
// pure-Go SQLite. Embeddings are stored as JSON text and similarity
// search runs in-process with brute-force cosine similarity. Zero CGO
// required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/gaurav-prasanna/tablepipe/core"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a structured logger for the store. If not set, no
// logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store backs both the per-session schema snapshot slot and the vector
// index with one local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ core.SnapshotStore = (*Store)(nil)
	_ core.VectorIndex   = (*Store)(nil)
)

// nopLogger discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath. A single
// shared connection serializes all writers, avoiding SQLITE_BUSY from
// concurrent connections.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Init creates the tables.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS snapshots (
		session TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating snapshots table: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS vectors (
		id TEXT PRIMARY KEY,
		embedding TEXT NOT NULL,
		metadata TEXT,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating vectors table: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- SnapshotStore ---

// Get loads the session's snapshot, or nil when none exists.
func (s *Store) Get(ctx context.Context, session string) (*core.SchemaSnapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE session = ?`, session).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	var snap core.SchemaSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Put overwrites the session's snapshot slot. Last write wins.
func (s *Store) Put(ctx context.Context, session string, snap *core.SchemaSnapshot) error {
	start := time.Now()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (session, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		session, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}
	s.logger.Debug("sqlite: snapshot stored", "session", session, "duration", time.Since(start))
	return nil
}

// --- VectorIndex ---

// Upsert stores or replaces a row vector.
func (s *Store) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO vectors (id, embedding, metadata, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding,
		 metadata = excluded.metadata, updated_at = excluded.updated_at`,
		id, serializeEmbedding(vector), string(meta), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing vector: %w", err)
	}
	return nil
}

// Query performs brute-force cosine similarity search over all stored
// vectors. topK is clamped to [1, 25].
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	if topK < 1 {
		topK = 1
	}
	if topK > 25 {
		topK = 25
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding, metadata FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []core.Match
	for rows.Next() {
		var id, embedding string
		var meta sql.NullString
		if err := rows.Scan(&id, &embedding, &meta); err != nil {
			return nil, fmt.Errorf("scanning vector row: %w", err)
		}
		stored := deserializeEmbedding(embedding)
		if len(stored) == 0 {
			continue
		}
		var metadata map[string]string
		if meta.Valid && meta.String != "" {
			_ = json.Unmarshal([]byte(meta.String), &metadata)
		}
		matches = append(matches, core.Match{
			ID:       id,
			Score:    cosineSimilarity(vector, stored),
			Metadata: metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	s.logger.Debug("sqlite: vector query", "matches", len(matches), "duration", time.Since(start))
	return matches, nil
}

// --- Embedding helpers ---

func serializeEmbedding(vec []float32) string {
	b, err := json.Marshal(vec)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func deserializeEmbedding(s string) []float32 {
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil
	}
	return vec
}

// cosineSimilarity returns a/b similarity in [-1, 1]; mismatched
// lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
