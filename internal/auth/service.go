// Package auth implements account management and HS256 token issuance.
// Every state-changing operation leaves an audit trail entry; failed logins
// are recorded too.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/engagehub/submission/internal/core"
)

// Auth failures are reported through sentinels so the transport layer can
// map them to status codes without string matching.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrDuplicateUser      = errors.New("username or email already exists")
)

// UserStore is the persistence contract the service needs.
type UserStore interface {
	// Create returns ErrDuplicateUser when the username or email is taken.
	Create(ctx context.Context, u *core.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*core.User, error)
	// GetByUsername matches the login identifier against the username or
	// the email address, case-insensitively.
	GetByUsername(ctx context.Context, username string) (*core.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// Service wires users, tokens, and the audit trail together.
type Service struct {
	users  UserStore
	tokens *TokenIssuer
	audit  *core.Recorder
}

func NewService(users UserStore, tokens *TokenIssuer, audit core.AuditStore) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		audit:  core.NewRecorder(audit),
	}
}

// Tokens exposes the issuer for transport-layer verification.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// RegisterParams describes a new account. Registration is admin-only.
type RegisterParams struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     core.Role
}

// Register creates a user account. Only admins may register users.
func (s *Service) Register(ctx context.Context, actor core.Identity, p RegisterParams) (*core.User, error) {
	if err := core.Require(actor.Role, core.RoleAdmin); err != nil {
		return nil, err
	}

	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)
	if p.Username == "" || p.Email == "" {
		return nil, errors.New("username and email are required")
	}
	if _, err := core.ParseRole(string(p.Role)); err != nil {
		return nil, err
	}
	if err := ValidatePassword(p.Password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &core.User{
		ID:           uuid.New(),
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: hash,
		FullName:     p.FullName,
		Role:         p.Role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		CreatedBy:    actor.UserID,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, core.AuditParams{
		UserID:    actor.UserID,
		Action:    core.ActionUserCreated,
		TableName: "users",
		RecordID:  user.ID,
		NewValues: map[string]any{"username": user.Username, "role": string(user.Role)},
	})

	slog.Info("user registered", "username", user.Username, "role", user.Role)
	return user, nil
}

// LoginResult carries both tokens plus the authenticated user.
type LoginResult struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         *core.User `json:"user"`
}

// Login authenticates by username or email. Failed attempts are audited
// without revealing whether the account exists.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		slog.Warn("login attempt for unknown user", "username", username)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		slog.Warn("login attempt for inactive user", "username", user.Username)
		return nil, ErrAccountInactive
	}

	if !CheckPassword(password, user.PasswordHash) {
		s.audit.Record(ctx, core.AuditParams{
			UserID: user.ID,
			Action: core.ActionUserLoginFailed,
		})
		slog.Warn("failed login attempt", "username", user.Username)
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		slog.Warn("updating last login failed", "username", user.Username, "error", err)
	} else {
		now := time.Now().UTC()
		user.LastLogin = &now
	}

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, core.AuditParams{
		UserID: user.ID,
		Action: core.ActionUserLogin,
	})

	slog.Info("user logged in", "username", user.Username)
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", ErrAccountInactive
	}

	return s.tokens.IssueAccess(user)
}

// CurrentUser resolves the identity's account record.
func (s *Service) CurrentUser(ctx context.Context, ident core.Identity) (*core.User, error) {
	return s.users.GetByID(ctx, ident.UserID)
}

// ChangePassword verifies the old password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, ident core.Identity, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, ident.UserID)
	if err != nil {
		return err
	}

	if !CheckPassword(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.audit.Record(ctx, core.AuditParams{
		UserID:    user.ID,
		Action:    core.ActionPasswordChanged,
		TableName: "users",
		RecordID:  user.ID,
	})

	slog.Info("password changed", "username", user.Username)
	return nil
}
