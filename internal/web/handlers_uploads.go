package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/engagehub/submission/internal/core"
)

// handleUpload accepts one multipart file and runs it through the pipeline
// synchronously. The response carries the terminal upload record; rejected
// and failed files answer with an error body instead.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest,
			ErrorResponse{Error: "No file provided", Code: "BAD_REQUEST"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	templateID := uuid.Nil
	if raw := r.FormValue("template_id"); raw != "" {
		templateID, err = uuid.Parse(raw)
		if err != nil {
			respondJSON(w, http.StatusBadRequest,
				ErrorResponse{Error: "Invalid template id", Code: "BAD_REQUEST"})
			return
		}
	}

	outcome, err := s.service.AcceptUpload(r.Context(), ident, core.UploadRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		TemplateID:  templateID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, outcome)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	filter := core.UploadFilter{
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := core.ParseUploadStatus(raw)
		if err != nil {
			respondJSON(w, http.StatusBadRequest,
				ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
			return
		}
		filter.Status = status
	}

	page, err := s.service.ListUploads(r.Context(), ident, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	fileID, err := pathUUID(r, "fileID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	file, count, err := s.service.GetUpload(r.Context(), ident, fileID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"file":         file,
		"record_count": count,
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	fileID, err := pathUUID(r, "fileID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	recs, err := s.service.ListRecords(r.Context(), ident, fileID,
		queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	fileID, err := pathUUID(r, "fileID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.service.DeleteUpload(r.Context(), ident, fileID); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Upload deleted successfully"})
}

// handleAuditLog returns recent audit entries. Admin and executive only.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	if err := core.Require(ident.Role, core.RoleAdmin, core.RoleExecutive); err != nil {
		respondError(w, r, err)
		return
	}

	entries, err := s.auditLog.ListRecent(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.Join(core.ErrNotFound, err)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
