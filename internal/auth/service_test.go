package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/engagehub/submission/internal/core"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*core.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*core.User)}
}

func (s *memUserStore) Create(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) ||
			strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateUser
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memUserStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *memUserStore) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		now := time.Now().UTC()
		u.LastLogin = &now
	}
	return nil
}

type memAuditStore struct {
	mu      sync.Mutex
	entries []core.AuditLogEntry
}

func (s *memAuditStore) Insert(_ context.Context, e *core.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

func (s *memAuditStore) actions() []core.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.AuditAction, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Action
	}
	return out
}

const testPassword = "Corr3ct#Horse"

func newTestService(t *testing.T) (*Service, *memUserStore, *memAuditStore) {
	t.Helper()
	issuer, err := NewTokenIssuer([]byte("test-secret"), IssuerOptions{})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	users := newMemUserStore()
	audit := &memAuditStore{}
	return NewService(users, issuer, audit), users, audit
}

func adminActor() core.Identity {
	return core.Identity{UserID: uuid.New(), Username: "root", Role: core.RoleAdmin}
}

func register(t *testing.T, svc *Service, username string) *core.User {
	t.Helper()
	user, err := svc.Register(context.Background(), adminActor(), RegisterParams{
		Username: username,
		Email:    username + "@example.org",
		Password: testPassword,
		Role:     core.RoleStaff,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, audit := newTestService(t)
	user := register(t, svc, "carol")

	if user.PasswordHash == testPassword {
		t.Fatal("password stored in the clear")
	}

	res, err := svc.Login(context.Background(), "carol", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Error("both tokens must be issued")
	}
	if res.User.LastLogin == nil {
		t.Error("last login should be set")
	}

	// Login by email works too.
	if _, err := svc.Login(context.Background(), "carol@example.org", testPassword); err != nil {
		t.Errorf("login by email: %v", err)
	}

	want := []core.AuditAction{core.ActionUserCreated, core.ActionUserLogin, core.ActionUserLogin}
	got := audit.actions()
	if len(got) != len(want) {
		t.Fatalf("audit trail = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("audit[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegisterRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(),
		core.Identity{UserID: uuid.New(), Role: core.RoleStaff},
		RegisterParams{Username: "eve", Email: "eve@example.org", Password: testPassword, Role: core.RoleStaff})

	var permErr *core.PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected *PermissionError, got %T: %v", err, err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "carol")

	_, err := svc.Register(context.Background(), adminActor(), RegisterParams{
		Username: "carol",
		Email:    "other@example.org",
		Password: testPassword,
		Role:     core.RoleStaff,
	})
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), adminActor(), RegisterParams{
		Username: "carol",
		Email:    "carol@example.org",
		Password: "short",
		Role:     core.RoleStaff,
	})
	if err == nil {
		t.Fatal("weak password must be rejected")
	}
}

func TestLoginFailures(t *testing.T) {
	svc, users, audit := newTestService(t)
	user := register(t, svc, "carol")

	// Wrong password.
	if _, err := svc.Login(context.Background(), "carol", "Wrong#Pass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	// Unknown user gets the same error.
	if _, err := svc.Login(context.Background(), "mallory", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}

	// The failed attempt on a real account is audited.
	failed := 0
	for _, a := range audit.actions() {
		if a == core.ActionUserLoginFailed {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 USER_LOGIN_FAILED entry, got %d", failed)
	}

	// Inactive account.
	users.mu.Lock()
	users.users[user.ID].IsActive = false
	users.mu.Unlock()
	if _, err := svc.Login(context.Background(), "carol", testPassword); !errors.Is(err, ErrAccountInactive) {
		t.Errorf("inactive account: got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "carol")

	res, err := svc.Login(context.Background(), "carol", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	ident, err := svc.Tokens().VerifyAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if ident.Username != "carol" || ident.Role != core.RoleStaff {
		t.Errorf("identity = %+v", ident)
	}
	if ident.UserID != res.User.ID {
		t.Error("subject does not match user id")
	}

	// Refresh tokens are not access tokens.
	if _, err := svc.Tokens().VerifyAccess(res.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access token: %v", err)
	}

	newAccess, err := svc.Refresh(context.Background(), res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := svc.Tokens().VerifyAccess(newAccess); err != nil {
		t.Errorf("refreshed access token invalid: %v", err)
	}
}

func TestVerifyAccessRejectsTampering(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "carol")

	res, _ := svc.Login(context.Background(), "carol", testPassword)

	other, _ := NewTokenIssuer([]byte("other-secret"), IssuerOptions{})
	if _, err := other.VerifyAccess(res.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token from wrong secret accepted: %v", err)
	}

	if _, err := svc.Tokens().VerifyAccess(res.AccessToken + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("mangled token accepted: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, audit := newTestService(t)
	user := register(t, svc, "carol")
	ident := core.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}

	const newPassword = "N3w#Password!"

	// Wrong old password is refused.
	if err := svc.ChangePassword(context.Background(), ident, "Wrong#Pass1", newPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong old password: got %v", err)
	}

	if err := svc.ChangePassword(context.Background(), ident, testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := svc.Login(context.Background(), "carol", testPassword); err == nil {
		t.Error("old password still accepted")
	}
	if _, err := svc.Login(context.Background(), "carol", newPassword); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	changed := 0
	for _, a := range audit.actions() {
		if a == core.ActionPasswordChanged {
			changed++
		}
	}
	if changed != 1 {
		t.Errorf("expected 1 PASSWORD_CHANGED entry, got %d", changed)
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("Str0ng#Password"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	for _, bad := range []string{
		"Sh0rt#x",          // too short
		"alllowercase1#xx", // no uppercase
		"ALLUPPERCASE1#XX", // no lowercase
		"NoDigitsHere#xyz", // no digit
		"NoSpecials12345x", // no special
	} {
		if err := ValidatePassword(bad); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
}
