// Package core defines the tabular data model and the pipeline's
// collaborator interfaces. Each stage of the pipeline depends only on
// these types, never on a concrete implementation.
package core

// Row maps column names to cell values. A cell is a string, float64,
// bool, or nil; after cleaning it is a trimmed string or a coerced
// float64. Rows are independent of each other.
type Row map[string]any

// Table is the normalized (columns, rows) pair produced by an ingestion.
// Columns is the display order and contains no duplicates; after
// projection and cleaning every row has exactly the keys in Columns.
type Table struct {
	Name      string   `json:"name"`
	SourceURL string   `json:"source_url"`
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
}

// SchemaSnapshot is the single retained summary of the most recent
// successful ingestion for a session. It is replaced wholesale on each
// ingestion (last write wins) and read back by chart replanning.
type SchemaSnapshot struct {
	Name      string   `json:"name"`
	SourceURL string   `json:"source_url"`
	Columns   []string `json:"columns"`
	Sample    []Row    `json:"sample"`
}

// ChartSpec describes one chart proposed by the planning collaborator
// or by the deterministic fallback.
type ChartSpec struct {
	Title   string `json:"title"`
	Type    string `json:"type"` // bar, line, or pie
	X       string `json:"x"`
	Y       string `json:"y,omitempty"`
	Agg     string `json:"agg,omitempty"` // count, sum, or mean
	GroupBy string `json:"groupBy,omitempty"`
	Filter  string `json:"filter,omitempty"`
	Note    string `json:"note,omitempty"`
}

// Match is one vector index search hit.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// FetchResult holds the payload and response metadata from a fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Parsing and embedding caps. Inputs beyond these bounds are silently
// truncated; the pipeline logs the truncation.
const (
	// MaxRows bounds the number of data rows parsed from any source.
	MaxRows = 20000
	// DiscoverSample bounds how many records are examined for column
	// discovery. Columns appearing only beyond the sample are omitted.
	DiscoverSample = 400
	// MaxEmbedRows bounds how many rows are embedded per ingestion.
	MaxEmbedRows = 200
	// MaxFeedItems bounds <item> extraction from an XML/RSS feed.
	MaxFeedItems = 2000
	// MaxScrapeItems bounds <item> extraction from a scraped page.
	MaxScrapeItems = 50
	// MaxAnchors bounds anchor extraction from an HTML page.
	MaxAnchors = 200
	// TableEventRows bounds the rows carried by the table event.
	TableEventRows = 500
	// SnapshotSampleRows is how many rows a schema snapshot retains.
	SnapshotSampleRows = 20
	// EmbedDimensions is the vector length the index expects; vectors
	// of any other length are skipped per row.
	EmbedDimensions = 768
)
