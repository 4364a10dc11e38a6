package assignments

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

// RepositoryPort defines data access methods for assignments.
type RepositoryPort interface {
	ListByPrincipal(ctx context.Context, principalID, orgID string) ([]authz.Assignment, error)
	Create(ctx context.Context, a authz.Assignment) error
	Delete(ctx context.Context, id uuid.UUID) (authz.Key, error)
	DeleteExpired(ctx context.Context, now time.Time) ([]authz.Key, error)
}

// Service handles assignment mutations. Every mutation invalidates the
// affected (principal, organization) cache entry before returning, so a
// check issued right after the mutation already sees the new state.
type Service struct {
	repo        RepositoryPort
	invalidator authz.Invalidator
	validate    *validator.Validate
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator authz.Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		validate:    validator.New(),
		logger:      logger,
		now:         time.Now,
	}
}

// List returns the principal's assignments within one organization.
func (s *Service) List(ctx context.Context, principalID, orgID string) ([]authz.Assignment, error) {
	return s.repo.ListByPrincipal(ctx, principalID, orgID)
}

// Assign binds a principal to a role.
func (s *Service) Assign(ctx context.Context, input AssignInput, assignedBy string) (authz.Assignment, error) {
	if err := s.validate.Struct(input); err != nil {
		return authz.Assignment{}, err
	}
	assignment := authz.Assignment{
		ID:          uuid.New(),
		PrincipalID: input.PrincipalID,
		OrgID:       input.OrgID,
		RoleID:      input.RoleID,
		Binding:     input.Binding,
		AssignedAt:  s.now().UTC(),
		AssignedBy:  assignedBy,
		ExpiresAt:   input.ExpiresAt,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return authz.Assignment{}, err
	}
	s.invalidator.Invalidate(ctx, authz.Key{PrincipalID: assignment.PrincipalID, OrgID: assignment.OrgID})
	return assignment, nil
}

// Revoke removes an assignment by id.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	key, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.invalidator.Invalidate(ctx, key)
	return nil
}

// ExpireSweep deletes lapsed assignments and invalidates the cache entries
// they fed. Run periodically by the worker.
func (s *Service) ExpireSweep(ctx context.Context) (int, error) {
	keys, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		s.invalidator.Invalidate(ctx, key)
	}
	if len(keys) > 0 {
		s.logger.Info("expired assignments swept", slog.Int("principals", len(keys)))
	}
	return len(keys), nil
}
