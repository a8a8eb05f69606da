package core

import "context"

// Fetcher retrieves a remote payload. A non-2xx status is an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Planner proposes chart specs for a column set and row sample.
// A malformed response surfaces as an error; callers fall back to a
// deterministic default spec.
type Planner interface {
	Plan(ctx context.Context, columns []string, sample []Row, system string) ([]ChartSpec, error)
}

// Ranker selects up to 200 row indices worth embedding, most
// informative first. Callers fall back to the first 200 rows on error.
type Ranker interface {
	Rank(ctx context.Context, columns []string, rows []Row) ([]int, error)
}

// Embedder turns a text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores row vectors and answers similarity queries.
// TopK is clamped to [1, 25] by implementations.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// SnapshotStore is the single-slot per-session schema snapshot store.
// Put overwrites any previous snapshot for the session.
type SnapshotStore interface {
	Get(ctx context.Context, session string) (*SchemaSnapshot, error)
	Put(ctx context.Context, session string, snap *SchemaSnapshot) error
}

// Renderer converts a normalized table into an export format.
type Renderer interface {
	Render(t Table) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".csv").
	Extension() string
}
