package roles

import (
	"time"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

// Role is a stored role definition with persistence metadata.
type Role struct {
	authz.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleInput is the admin-facing payload for creating or updating a role.
type RoleInput struct {
	ID          string             `json:"id" validate:"required,max=64"`
	Name        string             `json:"name" validate:"required,max=128"`
	Description string             `json:"description" validate:"max=512"`
	Kind        authz.RoleKind     `json:"kind" validate:"required,oneof=platform organization"`
	Permissions []authz.Permission `json:"permissions" validate:"required,min=1,dive"`
	Inherits    []string           `json:"inherits" validate:"dive,required"`
}
