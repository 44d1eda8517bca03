package web

// errors.go maps pipeline errors onto HTTP responses. Technical detail
// stays in the server logs, keyed by request id; clients get the stable
// code and message from core.MapError.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/engagehub/submission/internal/auth"
	"github.com/engagehub/submission/internal/core"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs the technical error and writes the client-safe form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	msg := messageForError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg.Message, Code: msg.Code})
}

// messageForError extends core.MapError with the auth-layer errors the
// pipeline does not know about.
func messageForError(err error) core.UserMessage {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return core.UserMessage{Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
	case errors.Is(err, auth.ErrAccountInactive):
		return core.UserMessage{Code: "ACCOUNT_INACTIVE", Message: "Account is inactive"}
	case errors.Is(err, auth.ErrDuplicateUser):
		return core.UserMessage{Code: "DUPLICATE_USER", Message: "Username or email already exists"}
	case errors.Is(err, auth.ErrInvalidToken):
		return core.UserMessage{Code: "INVALID_TOKEN", Message: "Invalid or expired token"}
	case errors.Is(err, core.ErrTooManyUploads):
		return core.UserMessage{Code: "TOO_MANY_UPLOADS", Message: err.Error()}
	}
	return core.MapError(err)
}

func statusForError(err error) int {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		if vErr.Code == core.CodeFileTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	}

	var permErr *core.PermissionError
	if errors.As(err, &permErr) {
		return http.StatusForbidden
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrDuplicateUser):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// respondJSON writes a success payload.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("encoding response failed", "error", err)
		}
	}
}
