package domain

import "strings"

// WildcardPermission grants every permission to the role holding it.
const WildcardPermission = "*"

// PermissionPolicy maps roles to permission sets. It is built once at start-up
// and never mutated afterwards, so it is safe for concurrent use without locks.
type PermissionPolicy struct {
	grants map[string]map[string]struct{}
}

// NewPermissionPolicy copies table into an immutable policy. Role names are
// matched case-insensitively; permission strings are matched exactly.
func NewPermissionPolicy(table map[Role][]string) *PermissionPolicy {
	grants := make(map[string]map[string]struct{}, len(table))
	for role, perms := range table {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		grants[strings.ToUpper(string(role))] = set
	}
	return &PermissionPolicy{grants: grants}
}

// DefaultPermissionPolicy returns the built-in role table.
func DefaultPermissionPolicy() *PermissionPolicy {
	return NewPermissionPolicy(map[Role][]string{
		RoleOwner: {WildcardPermission},
		RoleAdmin: {
			"settings:read",
			"settings:write",
			"audit:read",
			"personnel:read",
			"personnel:write",
			"org:read",
			"org:write",
		},
		RoleUser: {
			"settings:read_own",
			"dashboard:write_own",
			"personnel:read",
			"org:read",
		},
	})
}

// IsAllowed reports whether role holds permission. Unknown roles are denied.
func (p *PermissionPolicy) IsAllowed(role, permission string) bool {
	perms, ok := p.grants[strings.ToUpper(role)]
	if !ok {
		return false
	}
	if _, ok := perms[WildcardPermission]; ok {
		return true
	}
	_, ok = perms[permission]
	return ok
}
