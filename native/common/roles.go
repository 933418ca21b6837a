package common

import "errors"

// ErrRoleMissing rejects callers lacking the role an operation requires.
var ErrRoleMissing = errors.New("caller missing required role")

// RoleView exposes role membership maintained by the administrative layer.
// The vault engine itself never consults it; role checks happen in the
// calling layer before an operation reaches the engine.
type RoleView interface {
	HasRole(role string, addr []byte) bool
}

// RequireRole rejects the caller when it does not hold the named role. A nil
// view denies everything: role checks fail closed.
func RequireRole(v RoleView, role string, addr []byte) error {
	if v == nil || len(addr) == 0 {
		return ErrRoleMissing
	}
	if !v.HasRole(role, addr) {
		return ErrRoleMissing
	}
	return nil
}
