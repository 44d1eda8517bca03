package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engagehub/submission/internal/auth"
	"github.com/engagehub/submission/internal/core"
)

// UserRepository persists user accounts.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `user_id, username, email, password_hash, full_name,
	role, is_active, created_at, last_login, created_by`

func (r *UserRepository) Create(ctx context.Context, u *core.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.FullName,
		u.Role, u.IsActive, u.CreatedAt, u.LastLogin, nullableUUID(u.CreatedBy))
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*core.User, error) {
	return r.getBy(ctx, "user_id = $1", id)
}

// GetByUsername resolves a login identifier, which may be the username or
// the email address.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.getBy(ctx, "LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)", username)
}

func (r *UserRepository) getBy(ctx context.Context, cond string, arg any) (*core.User, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+cond, arg)

	var u core.User
	var createdBy *uuid.UUID
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.LastLogin, &createdBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	if createdBy != nil {
		u.CreatedBy = *createdBy
	}
	return &u, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1 WHERE user_id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	if _, err := r.pool.Exec(ctx,
		`UPDATE users SET last_login = $1 WHERE user_id = $2`, now, id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// isUniqueViolation reports a Postgres unique constraint error (SQLSTATE
// 23505).
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
