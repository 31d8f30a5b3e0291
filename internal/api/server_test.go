package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/modsearch/internal/config"
	"github.com/dgallion1/modsearch/internal/pipeline"
	"github.com/dgallion1/modsearch/internal/platform"
	"github.com/dgallion1/modsearch/internal/search"
	"github.com/dgallion1/modsearch/internal/store"
	"github.com/spf13/afero"
)

const testKey = "test-key"

type testEnv struct {
	srv   *Server
	store *store.Store
	orch  *pipeline.Orchestrator
}

func newTestEnv(t *testing.T, pc *platform.Client) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:        testKey,
		ApplicationID: "app-1",
		WorkerCount:   1,
		MaxQueueSize:  8,
		JobTTL:        time.Hour,
	}
	st := store.New(afero.NewMemMapFs(), "out", "")
	dir := st.DefinitionDir(cfg.ApplicationID)
	afero.WriteFile(st.Fs(), filepath.Join(dir, "doc1.json"),
		[]byte(`{"key":"root","components":[{"key":"grid1","type":"dynamicGrid"}]}`), 0o644)
	afero.WriteFile(st.Fs(), filepath.Join(dir, "doc2.json"),
		[]byte(`{"key":"root","components":[{"key":"grid1","type":"dynamicGrid"},{"key":"grid2","type":"other"}]}`), 0o644)

	runner := pipeline.NewRunner(nil, st, search.NewSearcher(search.DefaultOptions()), cfg.ApplicationID, 2, log)
	orch := pipeline.NewOrchestrator(cfg, runner, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return &testEnv{srv: NewServer(orch, st, pc, log, cfg), store: st, orch: orch}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) submit(t *testing.T, target string) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/search", map[string]any{"target": target})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.JobID == "" || resp.PollURL != "/api/search/"+resp.JobID+"/status" {
		t.Fatalf("unexpected accept response %+v", resp)
	}
	return resp.JobID
}

func (e *testEnv) wait(t *testing.T, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := e.do(http.MethodGet, "/api/search/"+jobID+"/status", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", rec.Code)
		}
		var snap pipeline.JobSnapshot
		json.NewDecoder(rec.Body).Decode(&snap)
		if snap.Status.Done() {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %q", snap.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("expected ok health, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name, header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/definitions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestSearchLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	jobID := env.submit(t, "dynamicGrid")

	snap := env.wait(t, jobID)
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Hits != 2 || snap.Progress.Locations != 1 {
		t.Errorf("expected 2 hits in 1 location, got %+v", snap.Progress)
	}

	rec := env.do(http.MethodGet, "/api/search/"+jobID+"/report?format=json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d", rec.Code)
	}
	var body struct {
		Locations []search.Location `json:"locations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(body.Locations) != 1 {
		t.Fatalf("expected 1 location, got %d", len(body.Locations))
	}
	loc := body.Locations[0]
	if loc.Path != "root->grid1->type" || strings.Join(loc.Sources, ",") != "doc1.json,doc2.json" {
		t.Errorf("unexpected location %+v", loc)
	}

	rec = env.do(http.MethodGet, "/api/search/"+jobID+"/report?format=markdown", nil)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("expected markdown content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "`root->grid1->type`") {
		t.Errorf("expected path in markdown report, got:\n%s", rec.Body.String())
	}
}

func TestSearchValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/search", map[string]any{"target": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty target: expected 400, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+testKey)
	rr := httptest.NewRecorder()
	env.srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", rr.Code)
	}

	rec = env.do(http.MethodPost, "/api/search", map[string]any{"target": "x", "refresh": true})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("refresh without platform: expected 400, got %d", rec.Code)
	}
}

func TestBatchSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/search/batch", map[string]any{
		"targets": []string{"dynamicGrid", "", "other"},
		"exact":   true,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var resp struct {
		Jobs []map[string]any `json:"jobs"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Jobs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Jobs))
	}
	if _, ok := resp.Jobs[1]["error"]; !ok {
		t.Error("expected error for empty target")
	}
	jobID, _ := resp.Jobs[2]["job_id"].(string)
	if snap := env.wait(t, jobID); snap.Progress.Hits != 1 {
		t.Errorf("expected 1 exact hit for other, got %d", snap.Progress.Hits)
	}
}

func TestStatusAndReportNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.do(http.MethodGet, "/api/search/nope/status", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status: expected 404, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/api/search/nope/report", nil); rec.Code != http.StatusNotFound {
		t.Errorf("report: expected 404, got %d", rec.Code)
	}
}

func TestReportBadFormat(t *testing.T) {
	env := newTestEnv(t, nil)
	jobID := env.submit(t, "dynamicGrid")
	env.wait(t, jobID)
	if rec := env.do(http.MethodGet, "/api/search/"+jobID+"/report?format=pdf", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestListAndDeleteDefinitions(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/definitions", nil)
	var list struct {
		Count       int              `json:"count"`
		Definitions []store.FileInfo `json:"definitions"`
	}
	json.NewDecoder(rec.Body).Decode(&list)
	if list.Count != 2 || list.Definitions[0].Name != "doc1.json" {
		t.Fatalf("unexpected listing %+v", list)
	}

	if rec := env.do(http.MethodDelete, "/api/definitions/doc1.json", nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if rec := env.do(http.MethodDelete, "/api/definitions/doc1.json", nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}
	if rec := env.do(http.MethodDelete, "/api/definitions/readme.txt", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported name: expected 400, got %d", rec.Code)
	}

	jobID := env.submit(t, "dynamicGrid")
	snap := env.wait(t, jobID)
	if snap.Progress.Documents != 1 {
		t.Errorf("expected search over 1 remaining document, got %d", snap.Progress.Documents)
	}
}

func TestListModules(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.do(http.MethodGet, "/api/modules", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before refresh, got %d", rec.Code)
	}

	env.store.WriteModuleList([]platform.Module{{ID: "m1", Name: "Intake"}})
	rec := env.do(http.MethodGet, "/api/modules", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Intake") {
		t.Errorf("expected module list, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestFetchStats(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.do(http.MethodGet, "/api/stats/fetch", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without platform: expected 503, got %d", rec.Code)
	}

	pc := platform.NewClient(platform.ClientConfig{BaseURL: "http://unused"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	env = newTestEnv(t, pc)
	rec := env.do(http.MethodGet, "/api/stats/fetch", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Authenticated bool `json:"authenticated"`
		Stats         struct {
			Count int `json:"count"`
		} `json:"stats"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Authenticated || body.Stats.Count != 0 {
		t.Errorf("unexpected stats %+v", body)
	}
}
