// Package core implements the file-ingestion pipeline: validation, row
// normalization, the upload lifecycle state machine, role checks, and audit
// recording. The package has no HTTP dependencies; callers supply an
// already-authenticated identity and the stores it should persist through.
package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the caller's access level, carried in from the identity provider.
type Role string

const (
	RoleExecutive Role = "executive"
	RoleStaff     Role = "staff"
	RolePublic    Role = "public"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a role string from an external source.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleExecutive, RoleStaff, RolePublic, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// UploadStatus is the lifecycle state of one uploaded file.
type UploadStatus string

const (
	StatusPending    UploadStatus = "pending"
	StatusProcessing UploadStatus = "processing"
	StatusCompleted  UploadStatus = "completed"
	StatusFailed     UploadStatus = "failed"
	StatusRejected   UploadStatus = "rejected"
)

// ParseUploadStatus validates a status string from an external source.
func ParseUploadStatus(s string) (UploadStatus, error) {
	switch UploadStatus(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusRejected:
		return UploadStatus(s), nil
	default:
		return "", fmt.Errorf("unknown upload status %q", s)
	}
}

// IsTerminal reports whether the status ends the lifecycle.
func (s UploadStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected:
		return true
	case StatusPending, StatusProcessing:
		return false
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal,
// monotonic lifecycle step. No state is re-entered or skipped.
func (s UploadStatus) CanTransition(next UploadStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed || next == StatusRejected
	case StatusCompleted, StatusFailed, StatusRejected:
		return false
	}
	return false
}

// Identity is the authenticated caller as supplied by the identity provider.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Role     Role
}

// UploadedFile tracks one uploaded file and its lifecycle record.
type UploadedFile struct {
	ID               uuid.UUID    `json:"file_id"`
	OriginalFilename string       `json:"original_filename"`
	StoredFilename   string       `json:"stored_filename"`
	FileSize         int64        `json:"file_size"`
	FileType         string       `json:"file_type"`
	MimeType         string       `json:"mime_type,omitempty"`
	Status           UploadStatus `json:"upload_status"`
	UploadedBy       uuid.UUID    `json:"uploaded_by"`
	UploadedAt       time.Time    `json:"uploaded_at"`
	ProcessedAt      *time.Time   `json:"processed_at,omitempty"`
	RowsProcessed    int          `json:"rows_processed"`
	RowsFailed       int          `json:"rows_failed"`
	ErrorMessage     string       `json:"error_message,omitempty"`
	ValidationNotes  string       `json:"validation_notes,omitempty"`
}

// EngagementRecord is one normalized row extracted from an upload.
// Records are immutable once written except for the IsActive soft flag, and
// are owned by their file: deleting the file cascades to them.
type EngagementRecord struct {
	ID             uuid.UUID    `json:"data_id"`
	FileID         uuid.UUID    `json:"file_id"`
	RowNumber      int          `json:"row_number"`
	SubmissionDate *time.Time   `json:"submission_date,omitempty"`
	Department     *string      `json:"department,omitempty"`
	Category       *string      `json:"category,omitempty"`
	Attributes     AttributeMap `json:"data_fields"`
	CreatedAt      time.Time    `json:"created_at"`
	IsActive       bool         `json:"is_active"`
}

// UploadTemplate is a named, versioned required-header contract. Templates
// are never mutated in place; a version bump creates a new template so
// historical uploads keep their original interpretation.
type UploadTemplate struct {
	ID          uuid.UUID `json:"template_id"`
	Name        string    `json:"template_name"`
	Version     string    `json:"template_version"`
	Description string    `json:"description,omitempty"`
	Headers     []string  `json:"headers"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   uuid.UUID `json:"created_by,omitempty"`
}

// ValidationRule is an optional per-field rule. The pipeline currently
// consults the required flag and basic data type at the header level only;
// regex, bounds, and allowed-value evaluation are an extension point.
type ValidationRule struct {
	ID            uuid.UUID `json:"rule_id"`
	Name          string    `json:"rule_name"`
	Description   string    `json:"rule_description,omitempty"`
	FieldName     string    `json:"field_name"`
	DataType      string    `json:"data_type"`
	Required      bool      `json:"is_required"`
	Pattern       string    `json:"validation_regex,omitempty"`
	MinValue      *int      `json:"min_value,omitempty"`
	MaxValue      *int      `json:"max_value,omitempty"`
	AllowedValues []string  `json:"allowed_values,omitempty"`
	IsActive      bool      `json:"is_active"`
}

// User is external to the ingestion core except as the identity the access
// guard and audit recorder consume.
type User struct {
	ID           uuid.UUID  `json:"user_id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name,omitempty"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedBy    uuid.UUID  `json:"-"`
}

// AuditAction tags one state-changing action in the audit trail.
type AuditAction string

const (
	ActionFileUploaded    AuditAction = "FILE_UPLOADED"
	ActionFileDeleted     AuditAction = "FILE_DELETED"
	ActionUserCreated     AuditAction = "USER_CREATED"
	ActionUserLogin       AuditAction = "USER_LOGIN"
	ActionUserLoginFailed AuditAction = "USER_LOGIN_FAILED"
	ActionPasswordChanged AuditAction = "PASSWORD_CHANGED"
)

// AuditLogEntry is one append-only audit record. The user reference is weak:
// entries survive user deletion.
type AuditLogEntry struct {
	ID        uuid.UUID      `json:"log_id"`
	UserID    uuid.UUID      `json:"user_id,omitempty"`
	Action    AuditAction    `json:"action"`
	TableName string         `json:"table_name,omitempty"`
	RecordID  uuid.UUID      `json:"record_id,omitempty"`
	OldValues map[string]any `json:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ValueKind discriminates the scalar variants an attribute may hold.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a tagged scalar: null, string, number, or bool. Date and time
// cells are stored as ISO-8601 strings. The tag makes flatness a
// construction-time property rather than a storage-side check.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

func NullValue() Value            { return Value{Kind: KindNull} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }

// DateValue stores a timestamp as its ISO-8601 string form.
func DateValue(t time.Time) Value {
	return Value{Kind: KindString, Str: t.Format(time.RFC3339)}
}

// MarshalJSON writes the scalar in its native JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind)
}

// UnmarshalJSON accepts only flat scalars. Arrays and objects are rejected
// so nested structures can never round-trip through storage.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = NullValue()
	case string:
		*v = StringValue(x)
	case float64:
		*v = NumberValue(x)
	case bool:
		*v = BoolValue(x)
	default:
		return fmt.Errorf("attribute values must be flat scalars, got %T", raw)
	}
	return nil
}

// AttributeMap is the flexible key→scalar bag capturing every source column
// of a row. It marshals to a flat JSON object.
type AttributeMap map[string]Value

// ValidationResult is the successful outcome of validating a parsed table.
type ValidationResult struct {
	Rows    int
	Headers []string
	Notes   []string
}

// ProcessingResult aggregates one processing run over a validated table.
type ProcessingResult struct {
	RowsProcessed int      `json:"rows_processed"`
	RowsFailed    int      `json:"rows_failed"`
	TotalRows     int      `json:"total_rows"`
	Notes         string   `json:"notes"`
	RowErrors     []string `json:"row_errors,omitempty"`
}

// UploadPage is one page of upload listings.
type UploadPage struct {
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	Uploads []UploadedFile `json:"uploads"`
}

// UploadFilter narrows upload listings.
type UploadFilter struct {
	Status     UploadStatus // empty matches all
	UploadedBy uuid.UUID    // uuid.Nil matches all
	Limit      int
	Offset     int
}
