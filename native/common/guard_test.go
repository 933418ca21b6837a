package common

import "testing"

type stubPauses struct {
	paused map[string]bool
}

func (s stubPauses) IsPaused(module string) bool { return s.paused[module] }

type stubRoles struct {
	grants map[string]string
}

func (s stubRoles) HasRole(role string, addr []byte) bool {
	return s.grants[role] == string(addr)
}

func TestGuardNilViewAllows(t *testing.T) {
	if err := Guard(nil, "vault"); err != nil {
		t.Fatalf("nil view should not block: %v", err)
	}
}

func TestGuardPausedModule(t *testing.T) {
	view := stubPauses{paused: map[string]bool{"vault": true}}
	if err := Guard(view, "vault"); err != ErrModulePaused {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(view, "other"); err != nil {
		t.Fatalf("unpaused module should pass: %v", err)
	}
}

func TestRequireRoleFailsClosed(t *testing.T) {
	addr := []byte("12345678901234567890")
	if err := RequireRole(nil, "ROLE_VAULT_ADMIN", addr); err != ErrRoleMissing {
		t.Fatalf("nil view must deny, got %v", err)
	}
	view := stubRoles{grants: map[string]string{"ROLE_VAULT_ADMIN": string(addr)}}
	if err := RequireRole(view, "ROLE_VAULT_ADMIN", addr); err != nil {
		t.Fatalf("granted role should pass: %v", err)
	}
	if err := RequireRole(view, "ROLE_PAUSER", addr); err != ErrRoleMissing {
		t.Fatalf("missing role must deny, got %v", err)
	}
}
