package assignments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for role assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assignmentColumns = `id, principal_id, org_id, role_id,
	COALESCE(division_id, ''), COALESCE(branch_id, ''), COALESCE(territory_id, ''),
	assigned_at, COALESCE(assigned_by, ''), expires_at`

// ListByPrincipal returns the principal's assignments within one organization.
func (r *Repository) ListByPrincipal(ctx context.Context, principalID, orgID string) ([]authz.Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM role_assignments
		WHERE principal_id = $1 AND org_id = $2
		ORDER BY assigned_at, id`, principalID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []authz.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

// Create inserts a new assignment. A duplicate (principal, org, role,
// binding) maps to shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, a authz.Assignment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_assignments
			(id, principal_id, org_id, role_id, division_id, branch_id, territory_id, assigned_at, assigned_by, expires_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), $10)`,
		a.ID, a.PrincipalID, a.OrgID, a.RoleID,
		a.Binding.DivisionID, a.Binding.BranchID, a.Binding.TerritoryID,
		a.AssignedAt, a.AssignedBy, a.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	return nil
}

// Delete removes an assignment, returning its key for cache invalidation.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (authz.Key, error) {
	var key authz.Key
	err := r.pool.QueryRow(ctx, `
		DELETE FROM role_assignments WHERE id = $1
		RETURNING principal_id, org_id`, id).Scan(&key.PrincipalID, &key.OrgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Key{}, shared.ErrNotFound
		}
		return authz.Key{}, err
	}
	return key, nil
}

// DeleteExpired removes assignments whose expiry has passed and returns the
// affected cache keys.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) ([]authz.Key, error) {
	rows, err := r.pool.Query(ctx, `
		DELETE FROM role_assignments
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		RETURNING principal_id, org_id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []authz.Key
	seen := make(map[authz.Key]struct{})
	for rows.Next() {
		var key authz.Key
		if err := rows.Scan(&key.PrincipalID, &key.OrgID); err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func scanAssignment(row pgx.Row) (authz.Assignment, error) {
	var a authz.Assignment
	if err := row.Scan(
		&a.ID, &a.PrincipalID, &a.OrgID, &a.RoleID,
		&a.Binding.DivisionID, &a.Binding.BranchID, &a.Binding.TerritoryID,
		&a.AssignedAt, &a.AssignedBy, &a.ExpiresAt,
	); err != nil {
		return authz.Assignment{}, err
	}
	return a, nil
}
