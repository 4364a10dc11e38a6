package authz

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Resolver expands a role assignment into the flattened set of permissions it
// grants, following inheritance depth-first with a visited set so that cyclic
// or diamond-shaped role graphs terminate and union correctly.
type Resolver struct {
	roles  RoleStore
	logger *slog.Logger
}

// NewResolver constructs a Resolver backed by the given role store.
func NewResolver(roles RoleStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{roles: roles, logger: logger}
}

// Resolve returns the deduplicated permissions granted by the assignment,
// with placeholder conditions substituted from its scope binding. Missing
// roles contribute nothing; store failures abort the resolution.
func (r *Resolver) Resolve(ctx context.Context, assignment Assignment) ([]Permission, error) {
	pass := &resolvePass{
		binding: assignment.Binding,
		visited: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
	}
	if err := r.expand(ctx, pass, assignment.RoleID, nil); err != nil {
		return nil, err
	}
	return pass.acc, nil
}

type resolvePass struct {
	binding     ScopeBinding
	visited     map[string]struct{}
	seen        map[string]struct{}
	acc         []Permission
	cycleLogged bool
}

// expand walks one role. path holds the ids on the current DFS branch so a
// revisit can be classified as a cycle rather than a diamond.
func (r *Resolver) expand(ctx context.Context, pass *resolvePass, roleID string, path []string) error {
	if _, ok := pass.visited[roleID]; ok {
		if onPath(path, roleID) && !pass.cycleLogged {
			pass.cycleLogged = true
			r.logger.Warn("role inheritance cycle, skipping revisit",
				slog.String("role_id", roleID))
		}
		return nil
	}
	pass.visited[roleID] = struct{}{}

	role, err := r.roles.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			r.logger.Debug("assigned role missing, contributes no permissions",
				slog.String("role_id", roleID))
			return nil
		}
		return err
	}

	for _, perm := range role.Permissions {
		substituted := substitute(perm, pass.binding)
		key := substituted.key()
		if _, dup := pass.seen[key]; dup {
			continue
		}
		pass.seen[key] = struct{}{}
		pass.acc = append(pass.acc, substituted)
	}

	path = append(path, roleID)
	for _, inherited := range role.Inherits {
		if err := r.expand(ctx, pass, inherited, path); err != nil {
			return err
		}
	}
	return nil
}

func onPath(path []string, roleID string) bool {
	for _, id := range path {
		if id == roleID {
			return true
		}
	}
	return false
}

// substitute replaces placeholder tokens such as "{branchId}" in the
// permission's conditions with the assignment's bound identifiers. A
// placeholder without a binding becomes an unresolved marker that the matcher
// fails closed.
func substitute(p Permission, binding ScopeBinding) Permission {
	if p.Conditions == nil {
		return p
	}
	c := *p.Conditions
	c.DivisionID = substituteValue(c.DivisionID, binding)
	c.BranchID = substituteValue(c.BranchID, binding)
	c.TerritoryID = substituteValue(c.TerritoryID, binding)
	p.Conditions = &c
	return p
}

func substituteValue(value string, binding ScopeBinding) string {
	if len(value) < 3 || !strings.HasPrefix(value, "{") || !strings.HasSuffix(value, "}") {
		return value
	}
	token := value[1 : len(value)-1]
	bound, ok := binding.lookup(token)
	if !ok {
		return conditionUnresolved
	}
	return bound
}
