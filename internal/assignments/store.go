package assignments

import (
	"context"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

// Store adapts the repository to the engine's AssignmentStore contract.
type Store struct {
	repo *Repository
}

// NewStore constructs a Store.
func NewStore(repo *Repository) Store {
	return Store{repo: repo}
}

// ListAssignments is the engine-facing read. Errors surface as-is; the
// facade converts them into a deny.
func (s Store) ListAssignments(ctx context.Context, principalID, orgID string) ([]authz.Assignment, error) {
	return s.repo.ListByPrincipal(ctx, principalID, orgID)
}
