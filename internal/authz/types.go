package authz

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wildcard and implication tokens accepted in granted permissions.
const (
	ResourceAll  = "*"
	ActionAll    = "*"
	ActionManage = "manage"
)

// PlatformRoleSuperAdmin marks a principal that bypasses permission
// evaluation entirely.
const PlatformRoleSuperAdmin = "superadmin"

// conditionUnresolved marks a condition value whose placeholder could not be
// substituted from the assignment binding. The matcher treats it as never
// satisfied.
const conditionUnresolved = "\x00unresolved"

// Conditions narrow when a granted permission applies. Empty string fields
// mean the condition is not set.
type Conditions struct {
	OwnOnly     bool   `json:"ownOnly,omitempty"`
	DivisionID  string `json:"divisionId,omitempty"`
	BranchID    string `json:"branchId,omitempty"`
	TerritoryID string `json:"territoryId,omitempty"`
}

func (c *Conditions) empty() bool {
	return c == nil || (!c.OwnOnly && c.DivisionID == "" && c.BranchID == "" && c.TerritoryID == "")
}

// Permission is a single granted capability. An absent scope defaults to
// platform, the broadest, meaning the grant is not scope-restricted.
type Permission struct {
	Resource   string      `json:"resource" validate:"required"`
	Action     string      `json:"action" validate:"required"`
	Scope      Scope       `json:"scope,omitempty"`
	Conditions *Conditions `json:"conditions,omitempty"`
}

// key returns a structural identity used to deduplicate permissions after
// placeholder substitution.
func (p Permission) key() string {
	var b strings.Builder
	b.WriteString(p.Resource)
	b.WriteByte('|')
	b.WriteString(p.Action)
	b.WriteByte('|')
	b.WriteString(p.Scope.String())
	if c := p.Conditions; c != nil {
		b.WriteByte('|')
		if c.OwnOnly {
			b.WriteString("own")
		}
		b.WriteByte('|')
		b.WriteString(c.DivisionID)
		b.WriteByte('|')
		b.WriteString(c.BranchID)
		b.WriteByte('|')
		b.WriteString(c.TerritoryID)
	}
	return b.String()
}

// RoleKind distinguishes platform-level roles from tenant roles.
type RoleKind string

const (
	RoleKindPlatform     RoleKind = "platform"
	RoleKindOrganization RoleKind = "organization"
)

// Role groups permissions and may inherit from other roles. The inheritance
// graph is treated as possibly cyclic input; the resolver visits each role id
// at most once per resolution.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Kind        RoleKind     `json:"kind"`
	Permissions []Permission `json:"permissions"`
	Inherits    []string     `json:"inherits,omitempty"`
}

// ScopeBinding carries the concrete scope identifiers an assignment binds its
// role's placeholder conditions to.
type ScopeBinding struct {
	DivisionID  string `json:"divisionId,omitempty"`
	BranchID    string `json:"branchId,omitempty"`
	TerritoryID string `json:"territoryId,omitempty"`
}

// lookup resolves a placeholder token name against the binding.
func (b ScopeBinding) lookup(token string) (string, bool) {
	switch token {
	case "divisionId":
		return b.DivisionID, b.DivisionID != ""
	case "branchId":
		return b.BranchID, b.BranchID != ""
	case "territoryId":
		return b.TerritoryID, b.TerritoryID != ""
	}
	return "", false
}

// Assignment binds one principal to one role within an organization.
type Assignment struct {
	ID          uuid.UUID    `json:"id"`
	PrincipalID string       `json:"principalId"`
	OrgID       string       `json:"orgId"`
	RoleID      string       `json:"roleId"`
	Binding     ScopeBinding `json:"binding"`
	AssignedAt  time.Time    `json:"assignedAt"`
	AssignedBy  string       `json:"assignedBy,omitempty"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
}

// Expired reports whether the assignment has lapsed at the given instant.
func (a Assignment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Principal is the authenticated actor a request is evaluated for.
type Principal struct {
	ID           string `json:"id"`
	PlatformRole string `json:"platformRole,omitempty"`
}

// IsPlatformSuperAdmin reports whether the principal carries the platform
// super-admin claim.
func (p Principal) IsPlatformSuperAdmin() bool {
	return p.PlatformRole == PlatformRoleSuperAdmin
}

// RequestContext carries request-time attributes needed to evaluate
// conditions against the target of the operation.
type RequestContext struct {
	ResourceOwnerID   string `json:"resourceOwnerId,omitempty"`
	TargetDivisionID  string `json:"targetDivisionId,omitempty"`
	TargetBranchID    string `json:"targetBranchId,omitempty"`
	TargetTerritoryID string `json:"targetTerritoryId,omitempty"`
}

// Request describes one authorization check. A nil Scope means the caller is
// not scope-filtering and any granted scope passes.
type Request struct {
	Principal Principal
	OrgID     string
	Resource  string
	Action    string
	Scope     *Scope
	Context   *RequestContext
}

// Decision is the outcome of an evaluation, with the matched grant retained
// for diagnostics and audit.
type Decision struct {
	Allowed bool        `json:"allowed"`
	Bypass  bool        `json:"bypass,omitempty"`
	Matched *Permission `json:"matched,omitempty"`
}

// RoleStore is the external role definition store. Implementations return
// ErrRoleNotFound when the id is unknown.
type RoleStore interface {
	GetRole(ctx context.Context, roleID string) (Role, error)
}

// AssignmentStore is the external assignment store.
type AssignmentStore interface {
	ListAssignments(ctx context.Context, principalID, orgID string) ([]Assignment, error)
}
