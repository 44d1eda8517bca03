package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engagehub/submission/internal/core"
)

// AuditRepository appends to the audit log. Entries are append-only; there
// is no update or delete path.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Insert(ctx context.Context, e *core.AuditLogEntry) error {
	oldVals, err := marshalValues(e.OldValues)
	if err != nil {
		return fmt.Errorf("encode old values: %w", err)
	}
	newVals, err := marshalValues(e.NewValues)
	if err != nil {
		return fmt.Errorf("encode new values: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_log
			(log_id, user_id, action, table_name, record_id,
			 old_values, new_values, ip_address, user_agent, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, e.ID, nullableUUID(e.UserID), e.Action, e.TableName, nullableUUID(e.RecordID),
		oldVals, newVals, e.IPAddress, e.UserAgent, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries for admin review.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]core.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT log_id, user_id, action, table_name, record_id,
			old_values, new_values, ip_address, user_agent, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []core.AuditLogEntry
	for rows.Next() {
		var e core.AuditLogEntry
		var userID, recordID *uuid.UUID
		var oldVals, newVals []byte
		if err := rows.Scan(&e.ID, &userID, &e.Action, &e.TableName, &recordID,
			&oldVals, &newVals, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if userID != nil {
			e.UserID = *userID
		}
		if recordID != nil {
			e.RecordID = *recordID
		}
		if err := unmarshalValues(oldVals, &e.OldValues); err != nil {
			return nil, err
		}
		if err := unmarshalValues(newVals, &e.NewValues); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

func marshalValues(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalValues(data []byte, dst *map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode audit values: %w", err)
	}
	return nil
}

// nullableUUID maps the zero UUID to SQL NULL for weak references.
func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
