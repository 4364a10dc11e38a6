package users

import (
	"context"
	"log/slog"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

// RepositoryPort defines data access methods for principals.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	SetPlatformRole(ctx context.Context, id, platformRole string) error
}

// Service handles principal business logic.
type Service struct {
	repo        RepositoryPort
	invalidator authz.Invalidator
	logger      *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator authz.Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

// ListUsers returns all principals.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one principal.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// SetPlatformRole grants or clears the platform claim. Sessions pick the
// change up on next login; cached permission sets for the principal are
// dropped immediately.
func (s *Service) SetPlatformRole(ctx context.Context, id, platformRole string) error {
	if err := s.repo.SetPlatformRole(ctx, id, platformRole); err != nil {
		return err
	}
	s.invalidator.InvalidatePrincipal(ctx, id)
	return nil
}
