package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/tablepipe/core"
	"github.com/gaurav-prasanna/tablepipe/pipeline"
)

type memStore struct {
	snaps map[string]*core.SchemaSnapshot
}

func (s *memStore) Get(ctx context.Context, session string) (*core.SchemaSnapshot, error) {
	return s.snaps[session], nil
}

func (s *memStore) Put(ctx context.Context, session string, snap *core.SchemaSnapshot) error {
	s.snaps[session] = snap
	return nil
}

func newTestServer(opts ...pipeline.Option) *httptest.Server {
	return httptest.NewServer(New(pipeline.New(opts...)).Handler())
}

func TestIngestStreamsSSE(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	body := `{"text":"a,b\n1,2\n3,4\n","contentType":"text/csv"}`
	resp, err := http.Post(srv.URL+"/ingest", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /ingest: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if resp.Header.Get("X-Session-ID") == "" {
		t.Error("missing X-Session-ID header")
	}

	buf := make([]byte, 64<<10)
	n, _ := resp.Body.Read(buf)
	for n < len(buf) {
		m, err := resp.Body.Read(buf[n:])
		n += m
		if err != nil {
			break
		}
	}
	text := string(buf[:n])
	for _, want := range []string{"event: log\n", "event: schema\n", "event: insights\n", "event: table\n", `"Done."`} {
		if !strings.Contains(text, want) {
			t.Errorf("stream missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "event: error") {
		t.Errorf("unexpected error event:\n%s", text)
	}
}

func TestIngestRejectsEmptyRequest(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/ingest", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST /ingest: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestIngestKeepsExplicitSession(t *testing.T) {
	store := &memStore{snaps: make(map[string]*core.SchemaSnapshot)}
	srv := newTestServer(pipeline.WithSnapshotStore(store))
	defer srv.Close()

	body := `{"text":"a\n1\n","contentType":"text/csv"}`
	resp, err := http.Post(srv.URL+"/ingest?session=abc", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /ingest: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Session-ID"); got != "abc" {
		t.Errorf("session header = %q", got)
	}
}

func TestReplanNotFound(t *testing.T) {
	store := &memStore{snaps: make(map[string]*core.SchemaSnapshot)}
	srv := newTestServer(pipeline.WithSnapshotStore(store))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/replan?session=unknown", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /replan: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestReplanReturnsCharts(t *testing.T) {
	store := &memStore{snaps: map[string]*core.SchemaSnapshot{
		"s1": {Columns: []string{"a"}, Sample: []core.Row{{"a": "x"}}},
	}}
	srv := newTestServer(pipeline.WithSnapshotStore(store))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/replan?session=s1", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /replan: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	buf := make([]byte, 8<<10)
	n, _ := resp.Body.Read(buf)
	text := string(buf[:n])
	if !strings.Contains(text, `"charts"`) || !strings.Contains(text, `"schema"`) {
		t.Errorf("body = %s", text)
	}
}

func TestReplanRequiresSession(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/replan", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /replan: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchWithoutBackend(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/search?q=hello")
	if err != nil {
		t.Fatalf("GET /search: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/search")
	if err != nil {
		t.Fatalf("GET /search: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
