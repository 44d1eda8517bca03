package core

// errors.go defines the pipeline error taxonomy. Validation failures are
// client-caused and reject the upload before any row is committed.
// Processing failures are runtime faults that leave already-committed
// batches in place. Row failures never surface here: they are absorbed into
// the processing counters. All errors carry a stable machine code and a
// human-readable detail, never a stack trace.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced entity does not exist, or is
// hidden from the caller by ownership narrowing.
var ErrNotFound = errors.New("not found")

// ValidationCode identifies a category of validation failure.
type ValidationCode string

const (
	CodeEmptyFile      ValidationCode = "EMPTY_FILE"
	CodeMissingHeaders ValidationCode = "MISSING_HEADERS"
	CodeInvalidContent ValidationCode = "INVALID_CONTENT"
	CodeTooManyRows    ValidationCode = "TOO_MANY_ROWS"
	CodeFileType       ValidationCode = "FILE_TYPE_NOT_ALLOWED"
	CodeFileTooLarge   ValidationCode = "FILE_TOO_LARGE"
)

// ValidationError rejects a whole file before any row is persisted.
type ValidationError struct {
	Code    ValidationCode
	Detail  string
	Missing []string // populated for CodeMissingHeaders
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// NewMissingHeadersError builds the MISSING_HEADERS failure listing names.
func NewMissingHeadersError(names []string) *ValidationError {
	return &ValidationError{
		Code:    CodeMissingHeaders,
		Detail:  "Missing required headers: " + strings.Join(names, ", "),
		Missing: names,
	}
}

// ProcessingError is an unrecoverable fault during row import. Batches
// committed before the fault are retained.
type ProcessingError struct {
	Stage string // "begin", "insert", "commit"
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed at %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// PermissionError reports an insufficient caller role, carrying the
// required set and the actual role for diagnostics.
type PermissionError struct {
	Required []Role
	Actual   Role
}

func (e *PermissionError) Error() string {
	names := make([]string, len(e.Required))
	for i, r := range e.Required {
		names[i] = string(r)
	}
	return fmt.Sprintf("insufficient permissions: requires one of [%s], have %s",
		strings.Join(names, ", "), e.Actual)
}

// UserMessage is a client-safe rendering of an error: stable code plus a
// human-readable message.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MapError converts any pipeline error into its client-safe form.
// Internal details of unexpected errors are not leaked.
func MapError(err error) UserMessage {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return UserMessage{Code: string(vErr.Code), Message: vErr.Detail}
	}

	var pErr *PermissionError
	if errors.As(err, &pErr) {
		return UserMessage{Code: "PERMISSION_DENIED", Message: pErr.Error()}
	}

	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		return UserMessage{Code: "PROCESSING_FAILED", Message: procErr.Error()}
	}

	if errors.Is(err, ErrNotFound) {
		return UserMessage{Code: "NOT_FOUND", Message: "The requested resource was not found"}
	}

	return UserMessage{Code: "INTERNAL", Message: "An unexpected error occurred"}
}
