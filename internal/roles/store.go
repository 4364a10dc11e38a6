package roles

import (
	"context"
	"errors"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Store adapts the repository to the engine's RoleStore contract.
type Store struct {
	repo *Repository
}

// NewStore constructs a Store.
func NewStore(repo *Repository) Store {
	return Store{repo: repo}
}

// GetRole fetches a role definition, translating a missing row into the
// engine's sentinel so resolution can continue without it.
func (s Store) GetRole(ctx context.Context, roleID string) (authz.Role, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return authz.Role{}, authz.ErrRoleNotFound
		}
		return authz.Role{}, err
	}
	return role.Role, nil
}
