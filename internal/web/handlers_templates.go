package web

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/engagehub/submission/internal/core"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.ListTemplates(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if templates == nil {
		templates = []core.UploadTemplate{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "templateID"))
	if err != nil {
		respondError(w, r, core.ErrNotFound)
		return
	}

	tmpl, err := s.service.GetTemplate(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"template": tmpl})
}

// handleDownloadTemplate serves a starter file for a template: a CSV
// carrying just the template's header row, named {name}_v{version}.csv.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "templateID"))
	if err != nil {
		respondError(w, r, core.ErrNotFound)
		return
	}

	tmpl, err := s.service.GetTemplate(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_v%s.csv", tmpl.Name, tmpl.Version)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	cw.Write(tmpl.Headers)
	cw.Flush()
}
