package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engagehub/submission/internal/core"
)

// TemplateRepository reads the upload template registry. Templates are
// created by migration or admin tooling and never mutated in place, so the
// pipeline only ever reads active rows.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

const templateColumns = `template_id, template_name, template_version,
	description, headers, is_active, created_at, created_by`

func (r *TemplateRepository) GetActive(ctx context.Context, id uuid.UUID) (*core.UploadTemplate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM upload_templates
		WHERE template_id = $1 AND is_active
	`, id)

	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepository) ListActive(ctx context.Context) ([]core.UploadTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM upload_templates
		WHERE is_active
		ORDER BY template_name, template_version
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []core.UploadTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

// scanTemplate reads one row. description and created_by are nullable;
// rows seeded by admin tooling routinely leave them NULL.
func scanTemplate(row pgx.Row) (*core.UploadTemplate, error) {
	var t core.UploadTemplate
	var description *string
	var createdBy *uuid.UUID
	err := row.Scan(&t.ID, &t.Name, &t.Version, &description,
		&t.Headers, &t.IsActive, &t.CreatedAt, &createdBy)
	if err != nil {
		return nil, err
	}
	t.Description = derefString(description)
	if createdBy != nil {
		t.CreatedBy = *createdBy
	}
	return &t, nil
}
