package authz

// Matches reports whether a granted permission satisfies the requested
// (resource, action, scope, context) tuple. It is pure and total: missing
// context data makes the relevant condition fail, never an error.
func Matches(granted Permission, req Request) bool {
	if granted.Resource != ResourceAll && granted.Resource != req.Resource {
		return false
	}
	if granted.Action != ActionAll && granted.Action != ActionManage && granted.Action != req.Action {
		return false
	}
	if req.Scope != nil && !granted.Scope.BroaderOrEqual(*req.Scope) {
		return false
	}
	return conditionsSatisfied(granted.Conditions, req)
}

func conditionsSatisfied(c *Conditions, req Request) bool {
	if c.empty() {
		return true
	}
	if c.OwnOnly {
		if req.Context == nil || req.Context.ResourceOwnerID == "" || req.Context.ResourceOwnerID != req.Principal.ID {
			return false
		}
	}
	if !idConditionSatisfied(c.DivisionID, targetDivision(req.Context)) {
		return false
	}
	if !idConditionSatisfied(c.BranchID, targetBranch(req.Context)) {
		return false
	}
	if !idConditionSatisfied(c.TerritoryID, targetTerritory(req.Context)) {
		return false
	}
	return true
}

// idConditionSatisfied checks a scope-id equality condition. An unresolved
// placeholder fails closed; it is never treated as a wildcard.
func idConditionSatisfied(granted, target string) bool {
	if granted == "" {
		return true
	}
	if granted == conditionUnresolved {
		return false
	}
	return target != "" && target == granted
}

func targetDivision(ctx *RequestContext) string {
	if ctx == nil {
		return ""
	}
	return ctx.TargetDivisionID
}

func targetBranch(ctx *RequestContext) string {
	if ctx == nil {
		return ""
	}
	return ctx.TargetBranchID
}

func targetTerritory(ctx *RequestContext) string {
	if ctx == nil {
		return ""
	}
	return ctx.TargetTerritoryID
}
