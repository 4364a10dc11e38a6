package authz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoleStore struct {
	roles map[string]Role
	calls atomic.Int64
	err   error
}

func (f *fakeRoleStore) GetRole(_ context.Context, roleID string) (Role, error) {
	f.calls.Add(1)
	if f.err != nil {
		return Role{}, f.err
	}
	role, ok := f.roles[roleID]
	if !ok {
		return Role{}, ErrRoleNotFound
	}
	return role, nil
}

func testResolver(store RoleStore) *Resolver {
	return NewResolver(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolveInheritanceUnion(t *testing.T) {
	t.Parallel()

	store := &fakeRoleStore{roles: map[string]Role{
		"a": {
			ID:          "a",
			Permissions: []Permission{{Resource: "territory", Action: "read"}},
			Inherits:    []string{"b"},
		},
		"b": {
			ID:          "b",
			Permissions: []Permission{{Resource: "lead", Action: "read"}},
		},
	}}

	perms, err := testResolver(store).Resolve(context.Background(), Assignment{RoleID: "a"})
	require.NoError(t, err)
	assert.Len(t, perms, 2, "inherited permissions union with direct ones")
}

func TestResolveDiamondDeduplicates(t *testing.T) {
	t.Parallel()

	shared := Permission{Resource: "report", Action: "export"}
	store := &fakeRoleStore{roles: map[string]Role{
		"a": {ID: "a", Inherits: []string{"b", "c"}, Permissions: []Permission{{Resource: "territory", Action: "read"}}},
		"b": {ID: "b", Inherits: []string{"d"}},
		"c": {ID: "c", Inherits: []string{"d"}},
		"d": {ID: "d", Permissions: []Permission{shared}},
	}}

	perms, err := testResolver(store).Resolve(context.Background(), Assignment{RoleID: "a"})
	require.NoError(t, err)
	assert.Len(t, perms, 2, "diamond base contributes exactly once")

	// d is fetched only once per resolution pass.
	assert.Equal(t, int64(4), store.calls.Load())
}

func TestResolveCycleTerminates(t *testing.T) {
	t.Parallel()

	store := &fakeRoleStore{roles: map[string]Role{
		"a": {ID: "a", Inherits: []string{"b"}, Permissions: []Permission{{Resource: "territory", Action: "read"}}},
		"b": {ID: "b", Inherits: []string{"a"}, Permissions: []Permission{{Resource: "lead", Action: "read"}}},
	}}

	perms, err := testResolver(store).Resolve(context.Background(), Assignment{RoleID: "a"})
	require.NoError(t, err)
	assert.Len(t, perms, 2, "cycle yields the union of both roles' direct permissions")
}

func TestResolveIdempotent(t *testing.T) {
	t.Parallel()

	store := &fakeRoleStore{roles: map[string]Role{
		"a": {ID: "a", Inherits: []string{"b"}, Permissions: []Permission{{Resource: "territory", Action: "read", Scope: ScopeBranch}}},
		"b": {ID: "b", Permissions: []Permission{{Resource: "lead", Action: "read"}}},
	}}
	resolver := testResolver(store)
	assignment := Assignment{RoleID: "a", Binding: ScopeBinding{BranchID: "br-1"}}

	first, err := resolver.Resolve(context.Background(), assignment)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), assignment)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveMissingRoleContributesNothing(t *testing.T) {
	t.Parallel()

	store := &fakeRoleStore{roles: map[string]Role{
		"a": {ID: "a", Inherits: []string{"ghost"}, Permissions: []Permission{{Resource: "territory", Action: "read"}}},
	}}

	perms, err := testResolver(store).Resolve(context.Background(), Assignment{RoleID: "a"})
	require.NoError(t, err)
	assert.Len(t, perms, 1)

	// The whole assignment can point at a missing role.
	perms, err = testResolver(store).Resolve(context.Background(), Assignment{RoleID: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestResolveStoreFailurePropagates(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	store := &fakeRoleStore{err: storeErr}

	_, err := testResolver(store).Resolve(context.Background(), Assignment{RoleID: "a"})
	assert.ErrorIs(t, err, storeErr)
}

func TestResolveSubstitutesBinding(t *testing.T) {
	t.Parallel()

	store := &fakeRoleStore{roles: map[string]Role{
		"branchAdmin": {
			ID: "branchAdmin",
			Permissions: []Permission{{
				Resource:   "territory",
				Action:     ActionManage,
				Scope:      ScopeBranch,
				Conditions: &Conditions{BranchID: "{branchId}"},
			}},
		},
	}}

	perms, err := testResolver(store).Resolve(context.Background(), Assignment{
		RoleID:  "branchAdmin",
		Binding: ScopeBinding{BranchID: "br-42"},
	})
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "br-42", perms[0].Conditions.BranchID)
}

func TestResolveUnresolvedPlaceholderFailsClosed(t *testing.T) {
	t.Parallel()

	store := &fakeRoleStore{roles: map[string]Role{
		"divScoped": {
			ID: "divScoped",
			Permissions: []Permission{{
				Resource:   "territory",
				Action:     "read",
				Conditions: &Conditions{DivisionID: "{divisionId}"},
			}},
		},
	}}

	// No division binding on the assignment.
	perms, err := testResolver(store).Resolve(context.Background(), Assignment{RoleID: "divScoped"})
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, conditionUnresolved, perms[0].Conditions.DivisionID)

	// The permission never matches, whatever the request carries.
	req := Request{
		Principal: Principal{ID: "u1"},
		Resource:  "territory",
		Action:    "read",
		Context:   &RequestContext{TargetDivisionID: "d-1"},
	}
	assert.False(t, Matches(perms[0], req))
}

func TestResolveDoesNotMutateStoredRole(t *testing.T) {
	t.Parallel()

	original := &Conditions{BranchID: "{branchId}"}
	store := &fakeRoleStore{roles: map[string]Role{
		"r": {
			ID:          "r",
			Permissions: []Permission{{Resource: "territory", Action: "read", Conditions: original}},
		},
	}}

	_, err := testResolver(store).Resolve(context.Background(), Assignment{
		RoleID:  "r",
		Binding: ScopeBinding{BranchID: "br-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "{branchId}", original.BranchID, "substitution must copy conditions")
}
