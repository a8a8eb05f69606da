package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/tablepipe/core"
)

const pastedCSV = "category,amount\nfood,10\nfood,20\ntravel,5\ntravel,15\nrent,100\n"

type fakeFetcher struct {
	result *core.FetchResult
	err    error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	return f.result, f.err
}

type fakeEmbedder struct {
	dims  int
	calls int
	err   error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return make([]float32, e.dims), nil
}

type fakeIndex struct {
	upserts []string
	matches []core.Match
}

func (i *fakeIndex) Upsert(ctx context.Context, id string, vec []float32, meta map[string]string) error {
	i.upserts = append(i.upserts, id)
	return nil
}

func (i *fakeIndex) Query(ctx context.Context, vec []float32, topK int) ([]core.Match, error) {
	return i.matches, nil
}

type fakeStore struct {
	snaps map[string]*core.SchemaSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{snaps: make(map[string]*core.SchemaSnapshot)}
}

func (s *fakeStore) Get(ctx context.Context, session string) (*core.SchemaSnapshot, error) {
	return s.snaps[session], nil
}

func (s *fakeStore) Put(ctx context.Context, session string, snap *core.SchemaSnapshot) error {
	s.snaps[session] = snap
	return nil
}

type fakeRanker struct {
	indices []int
	err     error
}

func (r *fakeRanker) Rank(ctx context.Context, columns []string, rows []core.Row) ([]int, error) {
	return r.indices, r.err
}

type fakePlanner struct {
	charts []core.ChartSpec
	err    error
}

func (p *fakePlanner) Plan(ctx context.Context, columns []string, sample []core.Row, system string) ([]core.ChartSpec, error) {
	return p.charts, p.err
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func names(events []Event) []EventName {
	out := make([]EventName, len(events))
	for i, ev := range events {
		out[i] = ev.Name
	}
	return out
}

func TestRunEventOrder(t *testing.T) {
	p := New()
	events := collect(t, p.Run(context.Background(), Request{
		Text:        pastedCSV,
		ContentType: "text/csv",
	}))

	var seq []EventName
	for _, ev := range events {
		if ev.Name != EventLog {
			seq = append(seq, ev.Name)
		}
	}
	want := []EventName{EventSchema, EventInsights, EventTable}
	if len(seq) != len(want) {
		t.Fatalf("non-log events = %v, want %v", seq, want)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("non-log events = %v, want %v", seq, want)
		}
	}
	last := events[len(events)-1]
	if last.Name != EventLog || last.Payload != "Done." {
		t.Errorf("last event = %v %v, want final log", last.Name, last.Payload)
	}

	schema := events[indexOf(events, EventSchema)].Payload.(SchemaPayload)
	if len(schema.Columns) != 2 || schema.RowCount != 5 {
		t.Errorf("schema = %+v", schema)
	}
	if schema.Name != "Pasted data" {
		t.Errorf("name = %q", schema.Name)
	}
}

func indexOf(events []Event, name EventName) int {
	for i, ev := range events {
		if ev.Name == name {
			return i
		}
	}
	return -1
}

func TestRunParseErrorIsTerminal(t *testing.T) {
	p := New()
	events := collect(t, p.Run(context.Background(), Request{
		Text:        `{"broken":`,
		ContentType: "application/json",
	}))
	last := events[len(events)-1]
	if last.Name != EventError {
		t.Fatalf("last event = %v, want error", last.Name)
	}
	for _, ev := range events {
		if ev.Name == EventSchema || ev.Name == EventTable {
			t.Errorf("unexpected %v after failed parse", ev.Name)
		}
	}
}

func TestRunFetchError(t *testing.T) {
	p := New(WithFetcher(&fakeFetcher{err: errors.New("boom")}))
	events := collect(t, p.Run(context.Background(), Request{URL: "https://ex.example/data.csv"}))
	last := events[len(events)-1]
	if last.Name != EventError {
		t.Fatalf("last event = %v, want error", last.Name)
	}
	if !strings.Contains(last.Payload.(string), "fetch") {
		t.Errorf("payload = %v", last.Payload)
	}
}

func TestRunNoFetcherConfigured(t *testing.T) {
	p := New()
	events := collect(t, p.Run(context.Background(), Request{URL: "https://ex.example/data.csv"}))
	if events[len(events)-1].Name != EventError {
		t.Errorf("expected error event, got %v", names(events))
	}
}

func TestRunFetchedContentTypeWins(t *testing.T) {
	fetcher := &fakeFetcher{result: &core.FetchResult{
		StatusCode:  200,
		ContentType: "text/csv",
		Body:        []byte(pastedCSV),
	}}
	p := New(WithFetcher(fetcher))
	events := collect(t, p.Run(context.Background(), Request{
		URL:         "https://sales.example/q1/report",
		ContentType: "application/json",
	}))
	idx := indexOf(events, EventSchema)
	if idx < 0 {
		t.Fatalf("no schema event: %v", names(events))
	}
	schema := events[idx].Payload.(SchemaPayload)
	if len(schema.Columns) != 2 {
		t.Errorf("columns = %v, want CSV columns", schema.Columns)
	}
	if schema.Name != "sales.example q1 report" {
		t.Errorf("derived name = %q", schema.Name)
	}
}

func TestRunScrapedFeedItems(t *testing.T) {
	p := New()
	body := `<html><body><item><title>One</title><link>https://a/1</link></item></body></html>`
	events := collect(t, p.Run(context.Background(), Request{Text: body}))
	idx := indexOf(events, EventSchema)
	if idx < 0 {
		t.Fatalf("no schema event: %v", names(events))
	}
	schema := events[idx].Payload.(SchemaPayload)
	if schema.RowCount != 1 || schema.Columns[0] != "title" {
		t.Errorf("schema = %+v, want feed row from scraped page", schema)
	}
}

func TestRunWarnWithoutVectorBackend(t *testing.T) {
	p := New()
	events := collect(t, p.Run(context.Background(), Request{
		Text:        pastedCSV,
		ContentType: "text/csv",
		Embed:       true,
	}))
	if indexOf(events, EventWarn) < 0 {
		t.Errorf("expected warn event, got %v", names(events))
	}
	if indexOf(events, EventVectorized) >= 0 {
		t.Errorf("vectorized must not fire without a backend")
	}
	if events[len(events)-1].Name != EventLog {
		t.Errorf("missing backend is non-fatal, got %v", names(events))
	}
}

func TestRunEmbeds(t *testing.T) {
	embedder := &fakeEmbedder{dims: core.EmbedDimensions}
	index := &fakeIndex{}
	p := New(WithEmbedder(embedder), WithVectorIndex(index))
	events := collect(t, p.Run(context.Background(), Request{
		Text:        pastedCSV,
		ContentType: "text/csv",
		Embed:       true,
	}))
	idx := indexOf(events, EventVectorized)
	if idx < 0 {
		t.Fatalf("no vectorized event: %v", names(events))
	}
	payload := events[idx].Payload.(VectorizedPayload)
	if payload.Count != 5 || len(index.upserts) != 5 {
		t.Errorf("count = %d, upserts = %d, want 5", payload.Count, len(index.upserts))
	}
	if idx >= indexOf(events, EventInsights) {
		t.Errorf("vectorized must precede insights: %v", names(events))
	}
}

func TestRunSkipsWrongLengthVectors(t *testing.T) {
	embedder := &fakeEmbedder{dims: 3}
	index := &fakeIndex{}
	p := New(WithEmbedder(embedder), WithVectorIndex(index))
	events := collect(t, p.Run(context.Background(), Request{
		Text:        pastedCSV,
		ContentType: "text/csv",
		Embed:       true,
	}))
	idx := indexOf(events, EventVectorized)
	if idx < 0 {
		t.Fatalf("no vectorized event: %v", names(events))
	}
	if got := events[idx].Payload.(VectorizedPayload).Count; got != 0 {
		t.Errorf("count = %d, want 0 for wrong-length vectors", got)
	}
	if len(index.upserts) != 0 {
		t.Errorf("upserts = %d, want 0", len(index.upserts))
	}
}

func TestRunEmbedsRankedRowsOnce(t *testing.T) {
	embedder := &fakeEmbedder{dims: core.EmbedDimensions}
	index := &fakeIndex{}
	ranker := &fakeRanker{indices: []int{0, 0, 0, 1, 99}}
	p := New(WithEmbedder(embedder), WithVectorIndex(index), WithRanker(ranker))
	events := collect(t, p.Run(context.Background(), Request{
		Text:        pastedCSV,
		ContentType: "text/csv",
		Embed:       true,
	}))
	idx := indexOf(events, EventVectorized)
	if idx < 0 {
		t.Fatalf("no vectorized event: %v", names(events))
	}
	payload := events[idx].Payload.(VectorizedPayload)
	if payload.Count != 2 || len(index.upserts) != 2 {
		t.Errorf("count = %d, upserts = %d, want 2 (duplicate and out-of-range indices dropped)",
			payload.Count, len(index.upserts))
	}
}

func TestRunPlannerFallback(t *testing.T) {
	p := New(WithPlanner(&fakePlanner{err: errors.New("model down")}))
	events := collect(t, p.Run(context.Background(), Request{
		Text:        pastedCSV,
		ContentType: "text/csv",
	}))
	idx := indexOf(events, EventInsights)
	if idx < 0 {
		t.Fatalf("no insights event: %v", names(events))
	}
	charts := events[idx].Payload.(InsightsPayload).Charts
	if len(charts) != 1 || charts[0].Agg != "mean" || charts[0].Y != "amount" {
		t.Errorf("fallback charts = %+v", charts)
	}
	if events[len(events)-1].Name != EventLog {
		t.Errorf("planner failure must be non-fatal: %v", names(events))
	}
}

func TestRunSavesSnapshot(t *testing.T) {
	store := newFakeStore()
	p := New(WithSnapshotStore(store))
	collect(t, p.Run(context.Background(), Request{
		Session:     "s1",
		Text:        pastedCSV,
		ContentType: "text/csv",
		Name:        "Q1 sales",
	}))
	snap := store.snaps["s1"]
	if snap == nil {
		t.Fatal("snapshot not saved")
	}
	if snap.Name != "Q1 sales" || len(snap.Columns) != 2 || len(snap.Sample) != 5 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestReplan(t *testing.T) {
	store := newFakeStore()
	store.snaps["s1"] = &core.SchemaSnapshot{
		Columns: []string{"category", "amount"},
		Sample: []core.Row{
			{"category": "a", "amount": 1.0},
			{"category": "b", "amount": 2.0},
			{"category": "c", "amount": 3.0},
			{"category": "d", "amount": 4.0},
			{"category": "e", "amount": 5.0},
		},
	}
	p := New(WithSnapshotStore(store))
	charts, snap, err := p.Replan(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Replan: %v", err)
	}
	if snap == nil || len(charts) != 1 {
		t.Fatalf("charts = %v, snap = %v", charts, snap)
	}

	if _, _, err := p.Replan(context.Background(), "unknown"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("unknown session err = %v, want ErrNoSnapshot", err)
	}
}

func TestSearch(t *testing.T) {
	p := New()
	if _, err := p.Search(context.Background(), "q", 5); !errors.Is(err, ErrNoVectorBackend) {
		t.Errorf("err = %v, want ErrNoVectorBackend", err)
	}

	index := &fakeIndex{matches: []core.Match{{ID: "v1", Score: 0.9}}}
	p = New(WithEmbedder(&fakeEmbedder{dims: core.EmbedDimensions}), WithVectorIndex(index))
	matches, err := p.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "v1" {
		t.Errorf("matches = %v", matches)
	}
}

func TestRowText(t *testing.T) {
	row := core.Row{"a": "x", "b": 2.5, "c": "", "d": nil}
	got := rowText([]string{"a", "b", "c", "d"}, row)
	if got != "a: x, b: 2.5" {
		t.Errorf("rowText = %q", got)
	}
}

func TestVectorIDStable(t *testing.T) {
	a := vectorID("same text", 3)
	b := vectorID("same text", 3)
	if a != b {
		t.Errorf("vectorID not stable: %q vs %q", a, b)
	}
	if vectorID("same text", 4) == a {
		t.Error("index must distinguish IDs")
	}
	if len(a) < 18 || !strings.Contains(a, "-") {
		t.Errorf("vectorID format = %q", a)
	}
}
