package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for role definitions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, description, kind, permissions, inherits, created_at, updated_at`

// ListRoles returns all roles ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role definition.
func (r *Repository) CreateRole(ctx context.Context, role authz.Role) (Role, error) {
	permissions, inherits, err := encodeDefinition(role)
	if err != nil {
		return Role{}, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (id, name, description, kind, permissions, inherits)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING `+roleColumns,
		role.ID, role.Name, role.Description, string(role.Kind), permissions, inherits)
	created, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrDuplicate
		}
		return Role{}, err
	}
	return created, nil
}

// UpdateRole replaces an existing role definition.
func (r *Repository) UpdateRole(ctx context.Context, role authz.Role) (Role, error) {
	permissions, inherits, err := encodeDefinition(role)
	if err != nil {
		return Role{}, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, description = $3, kind = $4, permissions = $5, inherits = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+roleColumns,
		role.ID, role.Name, role.Description, string(role.Kind), permissions, inherits)
	updated, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return updated, nil
}

// DeleteRole removes a role by id.
func (r *Repository) DeleteRole(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// EnsureRole inserts a role only when its id is absent, for seeding.
func (r *Repository) EnsureRole(ctx context.Context, role authz.Role) (bool, error) {
	permissions, inherits, err := encodeDefinition(role)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO roles (id, name, description, kind, permissions, inherits)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		role.ID, role.Name, role.Description, string(role.Kind), permissions, inherits)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (Role, error) {
	var (
		role        Role
		kind        string
		permissions []byte
		inherits    []byte
	)
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &kind, &permissions, &inherits, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	role.Kind = authz.RoleKind(kind)
	if err := json.Unmarshal(permissions, &role.Permissions); err != nil {
		return Role{}, fmt.Errorf("roles: decode permissions for %s: %w", role.ID, err)
	}
	if len(inherits) > 0 {
		if err := json.Unmarshal(inherits, &role.Inherits); err != nil {
			return Role{}, fmt.Errorf("roles: decode inherits for %s: %w", role.ID, err)
		}
	}
	return role, nil
}

func encodeDefinition(role authz.Role) ([]byte, []byte, error) {
	if role.Permissions == nil {
		role.Permissions = []authz.Permission{}
	}
	if role.Inherits == nil {
		role.Inherits = []string{}
	}
	permissions, err := json.Marshal(role.Permissions)
	if err != nil {
		return nil, nil, err
	}
	inherits, err := json.Marshal(role.Inherits)
	if err != nil {
		return nil, nil, err
	}
	return permissions, inherits, nil
}
