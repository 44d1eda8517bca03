package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engagehub/submission/internal/core"
)

const uploadColumns = `file_id, original_filename, stored_filename, file_size,
	file_type, mime_type, upload_status, uploaded_by, uploaded_at,
	processed_at, rows_processed, rows_failed, error_message, validation_notes`

// UploadRepository persists upload lifecycle records.
type UploadRepository struct {
	pool *pgxpool.Pool
}

func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{pool: pool}
}

func (r *UploadRepository) Create(ctx context.Context, f *core.UploadedFile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO uploaded_files (`+uploadColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, f.ID, f.OriginalFilename, f.StoredFilename, f.FileSize,
		f.FileType, f.MimeType, f.Status, f.UploadedBy, f.UploadedAt,
		f.ProcessedAt, f.RowsProcessed, f.RowsFailed, f.ErrorMessage, f.ValidationNotes)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

func (r *UploadRepository) Get(ctx context.Context, id uuid.UUID) (*core.UploadedFile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+uploadColumns+`
		FROM uploaded_files WHERE file_id = $1
	`, id)

	f, err := scanUpload(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select upload: %w", err)
	}
	return f, nil
}

func (r *UploadRepository) List(ctx context.Context, filter core.UploadFilter) (int64, []core.UploadedFile, error) {
	where, args := uploadFilterClause(filter)

	var total int64
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM uploaded_files"+where, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count uploads: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT `+uploadColumns+`
		FROM uploaded_files%s
		ORDER BY uploaded_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var items []core.UploadedFile
	for rows.Next() {
		f, err := scanUpload(rows)
		if err != nil {
			return 0, nil, fmt.Errorf("scan upload: %w", err)
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return total, items, nil
}

func (r *UploadRepository) Update(ctx context.Context, f *core.UploadedFile) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE uploaded_files
		SET upload_status = $1,
			processed_at = $2,
			rows_processed = $3,
			rows_failed = $4,
			error_message = $5,
			validation_notes = $6
		WHERE file_id = $7
	`, f.Status, f.ProcessedAt, f.RowsProcessed, f.RowsFailed,
		f.ErrorMessage, f.ValidationNotes, f.ID)
	if err != nil {
		return fmt.Errorf("update upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Delete removes the upload row; engagement records go with it via the
// ON DELETE CASCADE foreign key.
func (r *UploadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM uploaded_files WHERE file_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// scanUpload reads one row. uploaded_by goes NULL when the uploader's
// account is deleted.
func scanUpload(row pgx.Row) (*core.UploadedFile, error) {
	var f core.UploadedFile
	var uploadedBy *uuid.UUID
	err := row.Scan(&f.ID, &f.OriginalFilename, &f.StoredFilename, &f.FileSize,
		&f.FileType, &f.MimeType, &f.Status, &uploadedBy, &f.UploadedAt,
		&f.ProcessedAt, &f.RowsProcessed, &f.RowsFailed, &f.ErrorMessage, &f.ValidationNotes)
	if err != nil {
		return nil, err
	}
	if uploadedBy != nil {
		f.UploadedBy = *uploadedBy
	}
	return &f, nil
}

func uploadFilterClause(filter core.UploadFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("upload_status = $%d", len(args)))
	}
	if filter.UploadedBy != uuid.Nil {
		args = append(args, filter.UploadedBy)
		conds = append(conds, fmt.Sprintf("uploaded_by = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
