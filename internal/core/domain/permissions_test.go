package domain

import "testing"

func TestPermissionPolicy_OwnerHasWildcard(t *testing.T) {
	p := DefaultPermissionPolicy()
	for _, perm := range []string{"any:permission", "settings:write", "audit:read", ""} {
		if !p.IsAllowed("OWNER", perm) {
			t.Fatalf("owner should be allowed %q", perm)
		}
	}
}

func TestPermissionPolicy_AdminLimited(t *testing.T) {
	p := DefaultPermissionPolicy()
	if !p.IsAllowed("ADMIN", "settings:write") {
		t.Fatalf("admin should hold settings:write")
	}
	if p.IsAllowed("ADMIN", "unknown:dangerous") {
		t.Fatalf("admin should not hold unknown:dangerous")
	}
}

func TestPermissionPolicy_UserLeastPrivilege(t *testing.T) {
	p := DefaultPermissionPolicy()
	if !p.IsAllowed("USER", "dashboard:write_own") {
		t.Fatalf("user should hold dashboard:write_own")
	}
	if p.IsAllowed("USER", "settings:write") {
		t.Fatalf("user must never hold settings:write")
	}
	if p.IsAllowed("USER", "audit:read") {
		t.Fatalf("user must not read the audit log")
	}
}

func TestPermissionPolicy_RoleNameCaseInsensitive(t *testing.T) {
	p := DefaultPermissionPolicy()
	if !p.IsAllowed("admin", "audit:read") || !p.IsAllowed("Owner", "x") {
		t.Fatalf("role lookup should ignore case")
	}
	if p.IsAllowed("ADMIN", "AUDIT:READ") {
		t.Fatalf("permission strings are matched exactly")
	}
}

func TestPermissionPolicy_UnknownRoleDenied(t *testing.T) {
	p := DefaultPermissionPolicy()
	for _, role := range []string{"", "GUEST", "root", "*"} {
		if p.IsAllowed(role, "org:read") {
			t.Fatalf("role %q should be denied", role)
		}
	}
}

func TestPermissionPolicy_CopiesTable(t *testing.T) {
	table := map[Role][]string{RoleUser: {"org:read"}}
	p := NewPermissionPolicy(table)
	table[RoleUser][0] = "org:write"
	table[RoleAdmin] = []string{"*"}

	if !p.IsAllowed("USER", "org:read") {
		t.Fatalf("policy should keep its original grants")
	}
	if p.IsAllowed("ADMIN", "org:read") {
		t.Fatalf("policy must not observe later table edits")
	}
}
