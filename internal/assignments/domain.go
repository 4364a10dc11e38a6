package assignments

import (
	"time"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

// AssignInput is the admin-facing payload binding a principal to a role.
type AssignInput struct {
	PrincipalID string             `json:"principalId" validate:"required"`
	OrgID       string             `json:"orgId" validate:"required"`
	RoleID      string             `json:"roleId" validate:"required"`
	Binding     authz.ScopeBinding `json:"binding"`
	ExpiresAt   *time.Time         `json:"expiresAt,omitempty"`
}
