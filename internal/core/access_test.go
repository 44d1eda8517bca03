package core

import (
	"errors"
	"testing"
)

func TestRequire_Allowed(t *testing.T) {
	if err := Require(RoleAdmin, RoleAdmin, RoleExecutive); err != nil {
		t.Errorf("admin should be allowed, got %v", err)
	}
	if err := Require(RoleExecutive, RoleAdmin, RoleExecutive); err != nil {
		t.Errorf("executive should be allowed, got %v", err)
	}
}

func TestRequire_Denied(t *testing.T) {
	err := Require(RoleStaff, RoleAdmin, RoleExecutive)
	if err == nil {
		t.Fatal("staff should be denied")
	}

	var pErr *PermissionError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected *PermissionError, got %T", err)
	}
	if pErr.Actual != RoleStaff {
		t.Errorf("expected actual role staff, got %s", pErr.Actual)
	}
	if len(pErr.Required) != 2 {
		t.Errorf("expected 2 required roles, got %d", len(pErr.Required))
	}
}

func TestCanViewAll(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleAdmin, true},
		{RoleExecutive, true},
		{RoleStaff, false},
		{RolePublic, false},
	}

	for _, tt := range tests {
		if got := CanViewAll(tt.role); got != tt.want {
			t.Errorf("CanViewAll(%s) = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"executive", "staff", "public", "admin"} {
		if _, err := ParseRole(valid); err != nil {
			t.Errorf("ParseRole(%q) returned error: %v", valid, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestUploadStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to UploadStatus
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusRejected, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusRejected, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusProcessing, false},
		{StatusRejected, StatusPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestUploadStatus_IsTerminal(t *testing.T) {
	for _, s := range []UploadStatus{StatusCompleted, StatusFailed, StatusRejected} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []UploadStatus{StatusPending, StatusProcessing} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
