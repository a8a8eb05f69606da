package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/tablepipe/core"
	"github.com/gaurav-prasanna/tablepipe/core/clean"
	"github.com/gaurav-prasanna/tablepipe/core/detect"
	"github.com/gaurav-prasanna/tablepipe/core/normalize"
	"github.com/gaurav-prasanna/tablepipe/core/parse"
)

// ErrNoSnapshot is returned by Replan when the session has never
// completed an ingestion.
var ErrNoSnapshot = errors.New("no schema snapshot for session")

// ErrNoVectorBackend is returned by Search when no embedder or vector
// index is configured.
var ErrNoVectorBackend = errors.New("no vector backend configured")

// Request describes one ingestion. Exactly one of URL or Text should
// be set; ContentType is a hint for pasted text.
type Request struct {
	Session     string `json:"session"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	ContentType string `json:"contentType"`
	Name        string `json:"name"`
	Embed       bool   `json:"embed"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFetcher sets the remote fetcher.
func WithFetcher(f core.Fetcher) Option { return func(p *Pipeline) { p.fetcher = f } }

// WithPlanner sets the chart-planning collaborator.
func WithPlanner(pl core.Planner) Option { return func(p *Pipeline) { p.planner = pl } }

// WithRanker sets the row-importance ranking collaborator.
func WithRanker(r core.Ranker) Option { return func(p *Pipeline) { p.ranker = r } }

// WithEmbedder sets the embedding collaborator.
func WithEmbedder(e core.Embedder) Option { return func(p *Pipeline) { p.embedder = e } }

// WithVectorIndex sets the vector index.
func WithVectorIndex(v core.VectorIndex) Option { return func(p *Pipeline) { p.index = v } }

// WithSnapshotStore sets the per-session snapshot store.
func WithSnapshotStore(s core.SnapshotStore) Option { return func(p *Pipeline) { p.snapshots = s } }

// WithLogger sets a structured logger. If not set, nothing is logged.
func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// Pipeline runs ingestions against a fixed set of collaborators.
// The planner, ranker, embedder, and index are all optional; the
// pipeline degrades per the error taxonomy when they are absent.
type Pipeline struct {
	fetcher   core.Fetcher
	planner   core.Planner
	ranker    core.Ranker
	embedder  core.Embedder
	index     core.VectorIndex
	snapshots core.SnapshotStore
	logger    *slog.Logger
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.New(discardHandler{})}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes one ingestion as a single background task and returns
// its event stream. The channel is closed exactly once, on every exit
// path. Stages are strictly sequential; only collaborator calls block.
func (p *Pipeline) Run(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		p.run(ctx, req, events)
	}()
	return events
}

func (p *Pipeline) run(ctx context.Context, req Request, events chan<- Event) {
	emit := func(name EventName, payload any) {
		events <- Event{Name: name, Payload: payload}
	}
	fail := func(stage string, err error) {
		p.logger.Error("ingestion failed", "stage", stage, "error", err)
		emit(EventError, fmt.Sprintf("%s: %v", stage, err))
	}

	// --- Fetch ---
	body := req.Text
	contentType := req.ContentType
	source := req.URL
	if req.URL != "" {
		if p.fetcher == nil {
			fail("fetch", errors.New("no fetcher configured"))
			return
		}
		emit(EventLog, "Fetching "+req.URL+" ...")
		res, err := p.fetcher.Fetch(ctx, req.URL)
		if err != nil {
			fail("fetch", err)
			return
		}
		body = string(res.Body)
		if res.ContentType != "" {
			contentType = res.ContentType
		}
	} else {
		emit(EventLog, "Reading pasted payload ...")
	}

	// --- Route + parse ---
	format := detect.Detect(contentType, req.URL)
	emit(EventLog, "Detected format: "+format.String())

	columns, rows, truncated, err := parsePayload(format, body, source)
	if err != nil {
		fail("parse", err)
		return
	}
	if truncated {
		emit(EventLog, fmt.Sprintf("Parsed %d rows (input truncated at cap)", len(rows)))
	} else {
		emit(EventLog, fmt.Sprintf("Parsed %d rows", len(rows)))
	}

	// --- Clean ---
	columns, rows = clean.Clean(columns, rows)
	p.logger.Info("cleaned table", "columns", len(columns), "rows", len(rows))

	name := req.Name
	if name == "" {
		name = deriveName(source)
	}

	sample := rows
	if len(sample) > core.SnapshotSampleRows {
		sample = sample[:core.SnapshotSampleRows]
	}

	// --- Snapshot (single slot, last write wins) ---
	if p.snapshots != nil && req.Session != "" {
		snap := &core.SchemaSnapshot{Name: name, SourceURL: source, Columns: columns, Sample: sample}
		if err := p.snapshots.Put(ctx, req.Session, snap); err != nil {
			emit(EventLog, "Schema snapshot not saved: "+err.Error())
		}
	}

	emit(EventSchema, SchemaPayload{Name: name, SourceURL: source, Columns: columns, RowCount: len(rows)})

	// --- Optional embedding ---
	if req.Embed {
		if p.embedder == nil || p.index == nil {
			emit(EventWarn, "no vector backend configured; skipping embeddings")
		} else {
			count := p.embedRows(ctx, source, columns, rows)
			emit(EventVectorized, VectorizedPayload{Count: count})
		}
	}

	// --- Chart planning ---
	charts := p.planCharts(ctx, columns, sample, emit)
	emit(EventInsights, InsightsPayload{Charts: charts, Sample: sample})

	// --- Table ---
	tableRows := rows
	if len(tableRows) > core.TableEventRows {
		tableRows = tableRows[:core.TableEventRows]
	}
	emit(EventTable, core.Table{Name: name, SourceURL: source, Columns: columns, Rows: tableRows})
	emit(EventLog, "Done.")
}

// parsePayload dispatches to the tokenizer/normalizer for the format.
// Only JSON parsing can fail; every other parser is tolerant.
func parsePayload(format detect.Format, body, source string) (columns []string, rows []core.Row, truncated bool, err error) {
	switch format {
	case detect.FormatCSV:
		columns, rows, truncated = parse.CSV(body)
	case detect.FormatNDJSON:
		items, lineTruncated := parse.NDJSON(body)
		columns, rows, truncated = normalize.FromItems(items)
		truncated = truncated || lineTruncated
	case detect.FormatJSON:
		var v any
		v, err = parse.JSONValue(body)
		if err != nil {
			return nil, nil, false, err
		}
		columns, rows, truncated = normalize.Table(v)
	case detect.FormatXML:
		columns, rows = parse.XMLRows(body, core.MaxFeedItems)
	default:
		// A feed served as text/html still yields feed rows, at the
		// tighter scrape cap.
		if strings.Contains(body, "<item>") {
			columns, rows = parse.XMLRows(body, core.MaxScrapeItems)
			if len(rows) > 0 {
				break
			}
		}
		columns, rows = parse.HTMLRows(body, source)
	}
	return columns, rows, truncated, nil
}

// embedRows embeds a ranked subset of rows sequentially. A failed or
// wrong-length vector skips that row; the returned count stays
// accurate.
func (p *Pipeline) embedRows(ctx context.Context, source string, columns []string, rows []core.Row) int {
	indices := p.rankRows(ctx, columns, rows)
	count := 0
	for i, idx := range indices {
		text := rowText(columns, rows[idx])
		if text == "" {
			continue
		}
		vec, err := p.embedder.Embed(ctx, text)
		if err != nil {
			p.logger.Debug("embedding skipped", "row", idx, "error", err)
			continue
		}
		if len(vec) != core.EmbedDimensions {
			p.logger.Debug("embedding skipped", "row", idx, "dimensions", len(vec))
			continue
		}
		rowJSON, _ := json.Marshal(rows[idx])
		meta := map[string]string{"source": source, "row": string(rowJSON)}
		if err := p.index.Upsert(ctx, vectorID(text, i), vec, meta); err != nil {
			p.logger.Debug("vector upsert skipped", "row", idx, "error", err)
			continue
		}
		count++
	}
	return count
}

// rankRows asks the ranking collaborator for a diverse subset and
// falls back to the first rows on any failure or bad index. Out-of-range
// and repeated indices are dropped.
func (p *Pipeline) rankRows(ctx context.Context, columns []string, rows []core.Row) []int {
	limit := len(rows)
	if limit > core.MaxEmbedRows {
		limit = core.MaxEmbedRows
	}

	if p.ranker != nil {
		ranked, err := p.ranker.Rank(ctx, columns, rows)
		if err == nil {
			var indices []int
			seen := make(map[int]bool, len(ranked))
			for _, idx := range ranked {
				if idx >= 0 && idx < len(rows) && !seen[idx] {
					seen[idx] = true
					indices = append(indices, idx)
				}
				if len(indices) == core.MaxEmbedRows {
					break
				}
			}
			if len(indices) > 0 {
				return indices
			}
		} else {
			p.logger.Debug("ranking failed, embedding first rows", "error", err)
		}
	}

	indices := make([]int, limit)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// planCharts asks the planner and falls back deterministically on any
// failure. Planning failures are never fatal.
func (p *Pipeline) planCharts(ctx context.Context, columns []string, sample []core.Row, emit func(EventName, any)) []core.ChartSpec {
	if p.planner != nil {
		charts, err := p.planner.Plan(ctx, columns, sample, "")
		if err == nil && len(charts) > 0 {
			return charts
		}
		if err != nil {
			emit(EventLog, "Chart planner unavailable; using default chart")
			p.logger.Debug("chart planning failed", "error", err)
		}
	}
	return FallbackCharts(columns, sample)
}

// Replan re-runs chart planning against the retained schema snapshot.
func (p *Pipeline) Replan(ctx context.Context, session string) ([]core.ChartSpec, *core.SchemaSnapshot, error) {
	if p.snapshots == nil {
		return nil, nil, ErrNoSnapshot
	}
	snap, err := p.snapshots.Get(ctx, session)
	if err != nil {
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if snap == nil {
		return nil, nil, ErrNoSnapshot
	}
	if p.planner != nil {
		if charts, err := p.planner.Plan(ctx, snap.Columns, snap.Sample, ""); err == nil && len(charts) > 0 {
			return charts, snap, nil
		}
	}
	return FallbackCharts(snap.Columns, snap.Sample), snap, nil
}

// Search embeds a query and runs a similarity lookup. topK is clamped
// by the index implementation.
func (p *Pipeline) Search(ctx context.Context, query string, topK int) ([]core.Match, error) {
	if p.embedder == nil || p.index == nil {
		return nil, ErrNoVectorBackend
	}
	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return p.index.Query(ctx, vec, topK)
}

// rowText flattens a row to "column: value" pairs for embedding,
// skipping empty cells.
func rowText(columns []string, row core.Row) string {
	var fields []string
	for _, col := range columns {
		v := row[col]
		if v == nil || v == "" {
			continue
		}
		fields = append(fields, col+": "+cellString(v))
	}
	return strings.Join(fields, ", ")
}

func cellString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

// vectorID derives a stable ID from the row content plus an index tag.
func vectorID(text string, i int) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8]) + "-" + strconv.Itoa(i)
}

// deriveName turns a source URL into a table name.
func deriveName(source string) string {
	if source == "" {
		return "Pasted data"
	}
	parsed, err := url.Parse(source)
	if err != nil || parsed.Host == "" {
		return source
	}
	name := parsed.Host
	if p := strings.Trim(parsed.Path, "/"); p != "" {
		name += " " + strings.ReplaceAll(p, "/", " ")
	}
	return name
}

// discardHandler drops all log records; it backs the default logger.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
