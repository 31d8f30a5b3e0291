package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListDefinitions lists the definition files of the configured
// application.
func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	dir := s.orchestrator.Runner().DefinitionDir()
	files, err := s.store.ListDefinitions(dir)
	if err != nil {
		jsonError(w, "failed to list definitions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"application_id": s.cfg.ApplicationID,
		"count":          len(files),
		"definitions":    files,
	})
}

// handleDeleteDefinition removes a stored definition so later searches
// skip it.
func (s *Server) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.store.DeleteDefinition(s.orchestrator.Runner().DefinitionDir(), name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		jsonError(w, "definition not found", http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Info("deleted definition", "name", name)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": name})
}

// handleListModules returns the module list saved by the last refresh.
func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.store.ReadModuleList()
	if errors.Is(err, fs.ErrNotExist) {
		jsonError(w, "no module list yet; run a search with refresh", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to read module list: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"modules": modules})
}
