package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scopePtr(s Scope) *Scope {
	return &s
}

func TestMatchesWildcardResourceAction(t *testing.T) {
	t.Parallel()

	granted := Permission{Resource: ResourceAll, Action: ActionAll}

	pairs := [][2]string{
		{"territory", "read"},
		{"lead", "delete"},
		{"report", "export"},
		{"anything", "whatever"},
	}
	for _, pair := range pairs {
		req := Request{Principal: Principal{ID: "u1"}, Resource: pair[0], Action: pair[1]}
		assert.True(t, Matches(granted, req), "%s:%s", pair[0], pair[1])
	}
}

func TestMatchesManageImplication(t *testing.T) {
	t.Parallel()

	granted := Permission{Resource: "territory", Action: ActionManage, Scope: ScopeBranch}

	for _, action := range []string{"read", "update", "delete", "create"} {
		req := Request{
			Principal: Principal{ID: "u1"},
			Resource:  "territory",
			Action:    action,
			Scope:     scopePtr(ScopeBranch),
		}
		assert.True(t, Matches(granted, req), "manage should imply %s", action)
	}

	// Different resource stays out of reach.
	assert.False(t, Matches(granted, Request{
		Principal: Principal{ID: "u1"},
		Resource:  "lead",
		Action:    "read",
		Scope:     scopePtr(ScopeBranch),
	}))
}

func TestMatchesScopeBreadthMonotonicity(t *testing.T) {
	t.Parallel()

	granted := Permission{Resource: "territory", Action: "read", Scope: ScopeDivision}

	base := Request{Principal: Principal{ID: "u1"}, Resource: "territory", Action: "read"}

	branchReq := base
	branchReq.Scope = scopePtr(ScopeBranch)
	territoryReq := base
	territoryReq.Scope = scopePtr(ScopeTerritory)
	orgReq := base
	orgReq.Scope = scopePtr(ScopeOrganization)

	assert.True(t, Matches(granted, branchReq))
	assert.True(t, Matches(granted, territoryReq), "narrower than a matching scope must still match")
	assert.False(t, Matches(granted, orgReq), "broader than granted must not match")
}

func TestMatchesAbsentRequestScopePasses(t *testing.T) {
	t.Parallel()

	granted := Permission{Resource: "territory", Action: "read", Scope: ScopeTerritory}
	req := Request{Principal: Principal{ID: "u1"}, Resource: "territory", Action: "read"}

	assert.True(t, Matches(granted, req))
}

func TestMatchesOwnOnlyCondition(t *testing.T) {
	t.Parallel()

	granted := Permission{
		Resource:   "lead",
		Action:     "update",
		Conditions: &Conditions{OwnOnly: true},
	}

	owned := Request{
		Principal: Principal{ID: "u1"},
		Resource:  "lead",
		Action:    "update",
		Context:   &RequestContext{ResourceOwnerID: "u1"},
	}
	assert.True(t, Matches(granted, owned))

	foreign := owned
	foreign.Context = &RequestContext{ResourceOwnerID: "u2"}
	assert.False(t, Matches(granted, foreign))

	missingOwner := owned
	missingOwner.Context = &RequestContext{}
	assert.False(t, Matches(granted, missingOwner), "missing owner context fails closed")

	noContext := owned
	noContext.Context = nil
	assert.False(t, Matches(granted, noContext))
}

func TestMatchesScopeIDConditions(t *testing.T) {
	t.Parallel()

	granted := Permission{
		Resource:   "territory",
		Action:     ActionManage,
		Scope:      ScopeBranch,
		Conditions: &Conditions{BranchID: "br-42"},
	}

	match := Request{
		Principal: Principal{ID: "u1"},
		Resource:  "territory",
		Action:    "update",
		Scope:     scopePtr(ScopeBranch),
		Context:   &RequestContext{TargetBranchID: "br-42"},
	}
	assert.True(t, Matches(granted, match))

	wrongBranch := match
	wrongBranch.Context = &RequestContext{TargetBranchID: "br-99"}
	assert.False(t, Matches(granted, wrongBranch))

	missingTarget := match
	missingTarget.Context = &RequestContext{}
	assert.False(t, Matches(granted, missingTarget))
}

func TestMatchesUnresolvedConditionFailsClosed(t *testing.T) {
	t.Parallel()

	granted := Permission{
		Resource:   "territory",
		Action:     ActionManage,
		Conditions: &Conditions{DivisionID: conditionUnresolved},
	}

	req := Request{
		Principal: Principal{ID: "u1"},
		Resource:  "territory",
		Action:    "read",
		Context:   &RequestContext{TargetDivisionID: conditionUnresolved},
	}
	assert.False(t, Matches(granted, req), "unresolved is never a wildcard, even on exact equality")
}

func TestMatchesMultipleConditionsConjunctive(t *testing.T) {
	t.Parallel()

	granted := Permission{
		Resource: "lead",
		Action:   "update",
		Conditions: &Conditions{
			OwnOnly:    true,
			DivisionID: "d-1",
		},
	}

	ok := Request{
		Principal: Principal{ID: "u1"},
		Resource:  "lead",
		Action:    "update",
		Context:   &RequestContext{ResourceOwnerID: "u1", TargetDivisionID: "d-1"},
	}
	assert.True(t, Matches(granted, ok))

	wrongDivision := ok
	wrongDivision.Context = &RequestContext{ResourceOwnerID: "u1", TargetDivisionID: "d-2"}
	assert.False(t, Matches(granted, wrongDivision))
}
