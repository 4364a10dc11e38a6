package authz

import (
	"encoding/json"
	"fmt"
)

// Scope identifies the breadth of organizational context a permission or a
// request applies to. The ordering is fixed and total: platform is broadest,
// territory is narrowest.
type Scope uint8

const (
	ScopePlatform Scope = iota
	ScopeOrganization
	ScopeDivision
	ScopeBranch
	ScopeTerritory
)

var scopeNames = [...]string{
	ScopePlatform:     "platform",
	ScopeOrganization: "organization",
	ScopeDivision:     "division",
	ScopeBranch:       "branch",
	ScopeTerritory:    "territory",
}

// String returns the canonical lowercase name of the scope.
func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return fmt.Sprintf("scope(%d)", uint8(s))
}

// BroaderOrEqual reports whether s is the same as or broader than other.
// A permission granted at division level covers division, branch and
// territory requests, but not organization or platform ones.
func (s Scope) BroaderOrEqual(other Scope) bool {
	return s <= other
}

// ParseScope maps a scope name to its Scope value.
func ParseScope(name string) (Scope, error) {
	for i, n := range scopeNames {
		if n == name {
			return Scope(i), nil
		}
	}
	return ScopePlatform, fmt.Errorf("authz: unknown scope %q", name)
}

// MarshalJSON encodes the scope as its canonical name.
func (s Scope) MarshalJSON() ([]byte, error) {
	if int(s) >= len(scopeNames) {
		return nil, fmt.Errorf("authz: invalid scope %d", uint8(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a scope from its canonical name.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseScope(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
