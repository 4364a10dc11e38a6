package shared

// Core resource identifiers evaluated by the authorization engine.
const (
	ResourceTerritory  = "territory"
	ResourceLead       = "lead"
	ResourceBranch     = "branch"
	ResourceDivision   = "division"
	ResourceUser       = "user"
	ResourceRole       = "role"
	ResourceAssignment = "assignment"
	ResourceReport     = "report"
)

// Core action identifiers.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionExport = "export"
	ActionAssign = "assign"
)
