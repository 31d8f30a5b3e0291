package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/modsearch/internal/pipeline"
	"github.com/dgallion1/modsearch/internal/report"
	"github.com/go-chi/chi/v5"
)

const maxRequestBytes = 1 << 20

type searchRequest struct {
	Target  string `json:"target"`
	Exact   bool   `json:"exact"`
	Refresh bool   `json:"refresh"`
}

type batchSearchRequest struct {
	Targets []string `json:"targets"`
	Exact   bool     `json:"exact"`
	Refresh bool     `json:"refresh"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Target == "" {
		jsonError(w, "target is required", http.StatusBadRequest)
		return
	}
	if req.Refresh && s.platform == nil {
		jsonError(w, "refresh requires platform credentials", http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(req.Target, req.Exact, req.Refresh)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(jobAccepted(job))
}

// handleBatchSearch queues one job per target. Only the first job refreshes
// the definitions; the rest search the same corpus.
func (s *Server) handleBatchSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req batchSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Targets) == 0 {
		jsonError(w, "at least one target is required", http.StatusBadRequest)
		return
	}
	if req.Refresh && s.platform == nil {
		jsonError(w, "refresh requires platform credentials", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(req.Targets))
	refresh := req.Refresh
	for _, target := range req.Targets {
		if strings.TrimSpace(target) == "" {
			results = append(results, map[string]any{
				"target": target,
				"error":  "target is empty",
			})
			continue
		}

		job := pipeline.NewJob(target, req.Exact, refresh)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"target": target,
				"error":  err.Error(),
			})
			continue
		}
		refresh = false
		res := jobAccepted(job)
		res["target"] = target
		results = append(results, res)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

func jobAccepted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/search/%s/status", snap.ID),
	}
}

func (s *Server) handleSearchStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleSearchReport(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap := job.Snapshot()
	if !snap.Status.Done() {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	locations := job.Locations()
	if snap.Status == pipeline.StatusFailed && locations == nil {
		jsonError(w, "job failed", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	rr := report.Renderer{Target: snap.Target}
	if err := rr.Render(w, locations, format); err != nil {
		s.log.Error("render report failed", "job_id", snap.ID, "error", err)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
