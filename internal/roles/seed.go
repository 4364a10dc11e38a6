package roles

import (
	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Built-in role ids. The static role table ships as seed data in the role
// store; the engine has no separate code path for it.
const (
	RolePlatformSuperAdmin = "platformSuperAdmin"
	RoleOrgAdmin           = "orgAdmin"
	RoleDivisionManager    = "divisionManager"
	RoleBranchAdmin        = "branchAdmin"
	RoleTerritoryRep       = "territoryRep"
	RoleViewer             = "viewer"
)

// DefaultRoles returns the built-in role definitions seeded on startup.
func DefaultRoles() []authz.Role {
	return []authz.Role{
		{
			ID:          RolePlatformSuperAdmin,
			Name:        "Platform Super Admin",
			Description: "Full platform access; evaluation is bypassed by the platform claim.",
			Kind:        authz.RoleKindPlatform,
			Permissions: []authz.Permission{
				{Resource: authz.ResourceAll, Action: authz.ActionAll},
			},
		},
		{
			ID:          RoleOrgAdmin,
			Name:        "Organization Admin",
			Description: "Manages everything inside one organization.",
			Kind:        authz.RoleKindOrganization,
			Permissions: []authz.Permission{
				{Resource: authz.ResourceAll, Action: authz.ActionAll, Scope: authz.ScopeOrganization},
			},
		},
		{
			ID:          RoleDivisionManager,
			Name:        "Division Manager",
			Description: "Manages resources within the bound division.",
			Kind:        authz.RoleKindOrganization,
			Permissions: []authz.Permission{
				{
					Resource:   authz.ResourceAll,
					Action:     authz.ActionManage,
					Scope:      authz.ScopeDivision,
					Conditions: &authz.Conditions{DivisionID: "{divisionId}"},
				},
			},
			Inherits: []string{RoleViewer},
		},
		{
			ID:          RoleBranchAdmin,
			Name:        "Branch Admin",
			Description: "Manages territories and leads within the bound branch.",
			Kind:        authz.RoleKindOrganization,
			Permissions: []authz.Permission{
				{
					Resource:   shared.ResourceTerritory,
					Action:     authz.ActionManage,
					Scope:      authz.ScopeBranch,
					Conditions: &authz.Conditions{BranchID: "{branchId}"},
				},
				{
					Resource:   shared.ResourceLead,
					Action:     authz.ActionManage,
					Scope:      authz.ScopeBranch,
					Conditions: &authz.Conditions{BranchID: "{branchId}"},
				},
			},
			Inherits: []string{RoleViewer},
		},
		{
			ID:          RoleTerritoryRep,
			Name:        "Territory Rep",
			Description: "Works leads inside the bound territory; edits own records only.",
			Kind:        authz.RoleKindOrganization,
			Permissions: []authz.Permission{
				{
					Resource:   shared.ResourceLead,
					Action:     authz.ActionManage,
					Scope:      authz.ScopeTerritory,
					Conditions: &authz.Conditions{TerritoryID: "{territoryId}"},
				},
				{
					Resource:   shared.ResourceLead,
					Action:     shared.ActionUpdate,
					Scope:      authz.ScopeOrganization,
					Conditions: &authz.Conditions{OwnOnly: true},
				},
				{Resource: shared.ResourceTerritory, Action: shared.ActionRead, Scope: authz.ScopeTerritory},
			},
			Inherits: []string{RoleViewer},
		},
		{
			ID:          RoleViewer,
			Name:        "Viewer",
			Description: "Read-only access across the organization.",
			Kind:        authz.RoleKindOrganization,
			Permissions: []authz.Permission{
				{Resource: authz.ResourceAll, Action: shared.ActionRead, Scope: authz.ScopeOrganization},
			},
		},
	}
}
