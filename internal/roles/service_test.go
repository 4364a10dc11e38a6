package roles

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

type fakeRepo struct {
	stored  map[string]authz.Role
	listErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stored: make(map[string]authz.Role)}
}

func (f *fakeRepo) ListRoles(context.Context) ([]Role, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]Role, 0, len(f.stored))
	for _, role := range f.stored {
		out = append(out, Role{Role: role})
	}
	return out, nil
}

func (f *fakeRepo) GetRole(_ context.Context, id string) (Role, error) {
	role, ok := f.stored[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return Role{Role: role}, nil
}

func (f *fakeRepo) CreateRole(_ context.Context, role authz.Role) (Role, error) {
	if _, exists := f.stored[role.ID]; exists {
		return Role{}, shared.ErrDuplicate
	}
	f.stored[role.ID] = role
	return Role{Role: role}, nil
}

func (f *fakeRepo) UpdateRole(_ context.Context, role authz.Role) (Role, error) {
	if _, exists := f.stored[role.ID]; !exists {
		return Role{}, shared.ErrNotFound
	}
	f.stored[role.ID] = role
	return Role{Role: role}, nil
}

func (f *fakeRepo) DeleteRole(_ context.Context, id string) error {
	if _, exists := f.stored[id]; !exists {
		return shared.ErrNotFound
	}
	delete(f.stored, id)
	return nil
}

func (f *fakeRepo) EnsureRole(_ context.Context, role authz.Role) (bool, error) {
	if _, exists := f.stored[role.ID]; exists {
		return false, nil
	}
	f.stored[role.ID] = role
	return true, nil
}

type countingInvalidator struct {
	keys       []authz.Key
	principals []string
	all        int
}

func (c *countingInvalidator) Invalidate(_ context.Context, key authz.Key) {
	c.keys = append(c.keys, key)
}

func (c *countingInvalidator) InvalidatePrincipal(_ context.Context, principalID string) {
	c.principals = append(c.principals, principalID)
}

func (c *countingInvalidator) InvalidateAll(context.Context) {
	c.all++
}

func testService(repo RepositoryPort, inv authz.Invalidator) *Service {
	return NewService(repo, inv, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func validInput() RoleInput {
	return RoleInput{
		ID:   "fieldAuditor",
		Name: "Field Auditor",
		Kind: authz.RoleKindOrganization,
		Permissions: []authz.Permission{
			{Resource: "report", Action: "export", Scope: authz.ScopeDivision},
		},
	}
}

func TestCreateRoleInvalidatesAll(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	inv := &countingInvalidator{}
	svc := testService(repo, inv)

	created, err := svc.CreateRole(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "fieldAuditor", created.ID)
	assert.Equal(t, 1, inv.all, "role mutations flush the whole cache")
}

func TestCreateRoleValidation(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	inv := &countingInvalidator{}
	svc := testService(repo, inv)

	cases := map[string]func(*RoleInput){
		"missing id":          func(in *RoleInput) { in.ID = "" },
		"blank id":            func(in *RoleInput) { in.ID = "   " },
		"missing name":        func(in *RoleInput) { in.Name = "" },
		"bad kind":            func(in *RoleInput) { in.Kind = "galactic" },
		"no permissions":      func(in *RoleInput) { in.Permissions = nil },
		"permission w/o verb": func(in *RoleInput) { in.Permissions[0].Action = "" },
		"empty inherit entry": func(in *RoleInput) { in.Inherits = []string{""} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validInput()
			mutate(&input)
			_, err := svc.CreateRole(context.Background(), input)
			assert.Error(t, err)
		})
	}
	assert.Zero(t, inv.all, "rejected input never touches the cache")
	assert.Empty(t, repo.stored)
}

func TestCreateRoleDuplicate(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := testService(repo, &countingInvalidator{})

	_, err := svc.CreateRole(context.Background(), validInput())
	require.NoError(t, err)
	_, err = svc.CreateRole(context.Background(), validInput())
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateRoleInvalidatesAll(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	inv := &countingInvalidator{}
	svc := testService(repo, inv)

	_, err := svc.CreateRole(context.Background(), validInput())
	require.NoError(t, err)

	input := validInput()
	input.Description = "Audits division reports"
	updated, err := svc.UpdateRole(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Audits division reports", updated.Description)
	assert.Equal(t, 2, inv.all)
}

func TestDeleteRoleInvalidatesAll(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	inv := &countingInvalidator{}
	svc := testService(repo, inv)

	_, err := svc.CreateRole(context.Background(), validInput())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteRole(context.Background(), "fieldAuditor"))
	assert.Equal(t, 2, inv.all)

	assert.ErrorIs(t, svc.DeleteRole(context.Background(), "fieldAuditor"), shared.ErrNotFound)
}

func TestSeedIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	inv := &countingInvalidator{}
	svc := testService(repo, inv)

	require.NoError(t, svc.Seed(context.Background()))
	assert.Len(t, repo.stored, len(DefaultRoles()))
	assert.Equal(t, 1, inv.all)

	// A second seed inserts nothing and leaves the cache alone.
	require.NoError(t, svc.Seed(context.Background()))
	assert.Equal(t, 1, inv.all)
}

func TestSeedPreservesOperatorEdits(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := testService(repo, &countingInvalidator{})
	require.NoError(t, svc.Seed(context.Background()))

	edited := repo.stored["viewer"]
	edited.Description = "customized"
	repo.stored["viewer"] = edited

	require.NoError(t, svc.Seed(context.Background()))
	assert.Equal(t, "customized", repo.stored["viewer"].Description)
}

func TestDefaultRolesResolveWithoutUnknownReferences(t *testing.T) {
	t.Parallel()

	defs := DefaultRoles()
	ids := make(map[string]struct{}, len(defs))
	for _, role := range defs {
		ids[role.ID] = struct{}{}
	}
	for _, role := range defs {
		for _, parent := range role.Inherits {
			_, ok := ids[parent]
			assert.True(t, ok, "%s inherits unknown role %s", role.ID, parent)
		}
	}
}
