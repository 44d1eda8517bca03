package core

// stores.go declares the persistence contracts the pipeline depends on.
// The storage engine behind them must support transactional inserts, unique
// constraints, and a schema-less attribute column with a containment index;
// internal/store provides the Postgres implementation and the test suite
// substitutes in-memory fakes.

import (
	"context"

	"github.com/google/uuid"
)

// UploadStore persists upload lifecycle records.
type UploadStore interface {
	Create(ctx context.Context, f *UploadedFile) error
	Get(ctx context.Context, id uuid.UUID) (*UploadedFile, error)
	List(ctx context.Context, filter UploadFilter) (int64, []UploadedFile, error)
	Update(ctx context.Context, f *UploadedFile) error
	// Delete removes the upload and cascades to its engagement records.
	Delete(ctx context.Context, id uuid.UUID) error
}

// BatchRowError reports one row of a batch that failed in isolation.
type BatchRowError struct {
	RowNumber int // source-file line number
	Err       error
}

// RecordStore persists normalized engagement records.
type RecordStore interface {
	// InsertBatch writes one batch in a single transaction. Rows that fail an
	// individual constraint are rolled back alone and reported in failed; a
	// non-nil error means the whole batch was lost and processing must stop.
	InsertBatch(ctx context.Context, recs []EngagementRecord) (failed []BatchRowError, err error)
	CountByFile(ctx context.Context, fileID uuid.UUID) (int64, error)
	// ListByFile returns the active records of one upload in source order.
	ListByFile(ctx context.Context, fileID uuid.UUID, limit, offset int) ([]EngagementRecord, error)
}

// TemplateStore is the template registry: named, versioned header sets
// administrators can require uploads to match. Read-only to the pipeline.
type TemplateStore interface {
	GetActive(ctx context.Context, id uuid.UUID) (*UploadTemplate, error)
	ListActive(ctx context.Context) ([]UploadTemplate, error)
}

// RuleStore provides the optional per-field validation rules.
type RuleStore interface {
	ListActive(ctx context.Context) ([]ValidationRule, error)
}

// AuditStore appends audit log entries. Entries are never updated or
// deleted.
type AuditStore interface {
	Insert(ctx context.Context, e *AuditLogEntry) error
}

// BlobStore holds the raw bytes of uploaded files, keyed by stored filename.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}
