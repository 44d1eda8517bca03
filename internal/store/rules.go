package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engagehub/submission/internal/core"
)

// RuleRepository reads the optional per-field validation rules.
type RuleRepository struct {
	pool *pgxpool.Pool
}

func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

func (r *RuleRepository) ListActive(ctx context.Context) ([]core.ValidationRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rule_id, rule_name, rule_description, field_name, data_type,
			is_required, validation_regex, min_value, max_value,
			allowed_values, is_active
		FROM validation_rules
		WHERE is_active
		ORDER BY field_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []core.ValidationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

// scanRule reads one row. rule_description and validation_regex are
// nullable in the schema.
func scanRule(row pgx.Row) (*core.ValidationRule, error) {
	var rule core.ValidationRule
	var description, pattern *string
	err := row.Scan(&rule.ID, &rule.Name, &description, &rule.FieldName,
		&rule.DataType, &rule.Required, &pattern, &rule.MinValue,
		&rule.MaxValue, &rule.AllowedValues, &rule.IsActive)
	if err != nil {
		return nil, err
	}
	rule.Description = derefString(description)
	rule.Pattern = derefString(pattern)
	return &rule, nil
}
