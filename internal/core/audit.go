package core

// audit.go appends an immutable log entry for every state-changing action.
// A failed audit write is reported in the logs but never rolls back the
// primary mutation it accompanies.

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditParams describes one auditable action.
type AuditParams struct {
	UserID    uuid.UUID
	Action    AuditAction
	TableName string
	RecordID  uuid.UUID
	OldValues map[string]any
	NewValues map[string]any
}

// Recorder writes audit log entries through an AuditStore.
type Recorder struct {
	store AuditStore
}

// NewRecorder creates an audit recorder.
func NewRecorder(store AuditStore) *Recorder {
	return &Recorder{store: store}
}

// Record appends one entry, taking requester metadata from the context.
// Insert failures are swallowed after logging so the enclosing operation
// is never failed by its own audit trail.
func (r *Recorder) Record(ctx context.Context, p AuditParams) {
	entry := &AuditLogEntry{
		ID:        uuid.New(),
		UserID:    p.UserID,
		Action:    p.Action,
		TableName: p.TableName,
		RecordID:  p.RecordID,
		OldValues: p.OldValues,
		NewValues: p.NewValues,
		IPAddress: IPAddressFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}

	if err := r.store.Insert(ctx, entry); err != nil {
		slog.Warn("audit write failed",
			"action", p.Action,
			"user_id", p.UserID,
			"error", err,
		)
	}
}
