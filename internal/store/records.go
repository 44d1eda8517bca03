package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engagehub/submission/internal/core"
)

// RecordRepository persists normalized engagement records.
type RecordRepository struct {
	pool *pgxpool.Pool
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

// InsertBatch writes the batch inside one transaction, wrapping each row in
// a savepoint. A row that violates a constraint is rolled back to its
// savepoint and reported; the rest of the batch proceeds. Only a
// transaction-level failure (begin, savepoint bookkeeping, commit) is
// returned as an error.
func (r *RecordRepository) InsertBatch(ctx context.Context, recs []core.EngagementRecord) ([]core.BatchRowError, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	var failed []core.BatchRowError
	for i, rec := range recs {
		attrs, err := json.Marshal(rec.Attributes)
		if err != nil {
			failed = append(failed, core.BatchRowError{RowNumber: rec.RowNumber, Err: err})
			continue
		}

		sp := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			return failed, fmt.Errorf("create savepoint: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO engagement_records
				(data_id, file_id, row_number, submission_date, department,
				 category, data_fields, created_at, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, rec.ID, rec.FileID, rec.RowNumber, rec.SubmissionDate, rec.Department,
			rec.Category, attrs, rec.CreatedAt, rec.IsActive)
		if err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				return failed, fmt.Errorf("rollback savepoint: %w", rbErr)
			}
			failed = append(failed, core.BatchRowError{RowNumber: rec.RowNumber, Err: err})
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
			return failed, fmt.Errorf("release savepoint: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return failed, fmt.Errorf("commit batch: %w", err)
	}
	return failed, nil
}

func (r *RecordRepository) CountByFile(ctx context.Context, fileID uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM engagement_records WHERE file_id = $1 AND is_active`,
		fileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// ListByFile returns the active records of one upload in source order.
func (r *RecordRepository) ListByFile(ctx context.Context, fileID uuid.UUID, limit, offset int) ([]core.EngagementRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT data_id, file_id, row_number, submission_date, department,
			category, data_fields, created_at, is_active
		FROM engagement_records
		WHERE file_id = $1 AND is_active
		ORDER BY row_number
		LIMIT $2 OFFSET $3
	`, fileID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var recs []core.EngagementRecord
	for rows.Next() {
		var rec core.EngagementRecord
		var attrs []byte
		if err := rows.Scan(&rec.ID, &rec.FileID, &rec.RowNumber, &rec.SubmissionDate,
			&rec.Department, &rec.Category, &attrs, &rec.CreatedAt, &rec.IsActive); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return recs, nil
}
