package roles

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

// RepositoryPort defines data access methods for role definitions.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	CreateRole(ctx context.Context, role authz.Role) (Role, error)
	UpdateRole(ctx context.Context, role authz.Role) (Role, error)
	DeleteRole(ctx context.Context, id string) error
	EnsureRole(ctx context.Context, role authz.Role) (bool, error)
}

// Service handles role administration. Every mutation flushes the whole
// permission cache: a role definition change can affect any principal that
// reaches it through inheritance, which the engine cannot enumerate cheaply.
type Service struct {
	repo        RepositoryPort
	invalidator authz.Invalidator
	validate    *validator.Validate
	logger      *slog.Logger
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
	}
}

// ListRoles returns all stored role definitions.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole returns one role definition.
func (s *Service) GetRole(ctx context.Context, id string) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole validates and stores a new role definition.
func (s *Service) CreateRole(ctx context.Context, input RoleInput) (Role, error) {
	role, err := s.toDefinition(input)
	if err != nil {
		return Role{}, err
	}
	created, err := s.repo.CreateRole(ctx, role)
	if err != nil {
		return Role{}, err
	}
	s.invalidator.InvalidateAll(ctx)
	return created, nil
}

// UpdateRole validates and replaces an existing role definition.
func (s *Service) UpdateRole(ctx context.Context, input RoleInput) (Role, error) {
	role, err := s.toDefinition(input)
	if err != nil {
		return Role{}, err
	}
	updated, err := s.repo.UpdateRole(ctx, role)
	if err != nil {
		return Role{}, err
	}
	s.invalidator.InvalidateAll(ctx)
	return updated, nil
}

// DeleteRole removes a role definition. Assignments referencing it simply
// stop contributing permissions.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidator.InvalidateAll(ctx)
	return nil
}

// Seed inserts the built-in role table for ids not already present.
func (s *Service) Seed(ctx context.Context) error {
	var inserted int
	for _, role := range DefaultRoles() {
		ok, err := s.repo.EnsureRole(ctx, role)
		if err != nil {
			return err
		}
		if ok {
			inserted++
		}
	}
	if inserted > 0 {
		s.logger.Info("seeded built-in roles", slog.Int("count", inserted))
		s.invalidator.InvalidateAll(ctx)
	}
	return nil
}

// toDefinition validates the input so the matcher never needs defensive
// checks at evaluation time.
func (s *Service) toDefinition(input RoleInput) (authz.Role, error) {
	input.ID = strings.TrimSpace(input.ID)
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate.Struct(input); err != nil {
		return authz.Role{}, err
	}
	return authz.Role{
		ID:          input.ID,
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		Kind:        input.Kind,
		Permissions: input.Permissions,
		Inherits:    input.Inherits,
	}, nil
}
