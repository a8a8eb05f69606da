// Package pipeline orchestrates one ingestion: route → parse → clean →
// snapshot → optional embedding → chart planning → table, reported as
// a strictly ordered event stream on a channel the pipeline closes on
// every exit path.
package pipeline

import "github.com/gaurav-prasanna/tablepipe/core"

// EventName identifies the kind of pipeline event.
type EventName string

const (
	// EventLog carries free-text progress.
	EventLog EventName = "log"
	// EventSchema reports the cleaned column set and row count. It is
	// emitted before any embedding or chart work so a consumer can
	// start rendering schema UI early.
	EventSchema EventName = "schema"
	// EventWarn reports a non-fatal condition, e.g. a missing vector
	// backend when embedding was requested.
	EventWarn EventName = "warn"
	// EventVectorized reports how many rows were embedded. Emitted only
	// when embedding was requested and a vector backend is configured.
	EventVectorized EventName = "vectorized"
	// EventInsights carries chart specs plus the row sample they were
	// computed from.
	EventInsights EventName = "insights"
	// EventTable carries the normalized table, rows capped for
	// transport.
	EventTable EventName = "table"
	// EventError reports an unrecoverable failure; it is the last
	// event on its stream.
	EventError EventName = "error"
)

// Event is one (name, payload) pair on the ingestion stream.
type Event struct {
	Name    EventName `json:"event"`
	Payload any       `json:"payload"`
}

// SchemaPayload is the payload of EventSchema.
type SchemaPayload struct {
	Name      string   `json:"name"`
	SourceURL string   `json:"source_url"`
	Columns   []string `json:"columns"`
	RowCount  int      `json:"row_count"`
}

// VectorizedPayload is the payload of EventVectorized.
type VectorizedPayload struct {
	Count int `json:"count"`
}

// InsightsPayload is the payload of EventInsights.
type InsightsPayload struct {
	Charts []core.ChartSpec `json:"charts"`
	Sample []core.Row       `json:"sample"`
}
