package authz

import "errors"

var (
	// ErrRoleNotFound is returned by RoleStore implementations for unknown
	// role ids. The resolver logs it and continues; it never fails a check.
	ErrRoleNotFound = errors.New("authz: role not found")

	// ErrNoPrincipal indicates a check was attempted without an
	// authenticated principal.
	ErrNoPrincipal = errors.New("authz: no principal")
)
