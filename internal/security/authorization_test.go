package security

import (
	"errors"
	"testing"
)

func TestRolePermissions(t *testing.T) {
	as := NewAuthorizationService(nil)

	for _, role := range []Role{RoleAdmin, RoleUser} {
		for _, p := range []Permission{PermListLeads, PermDeleteLead, PermUpdateLeadStatus} {
			if err := as.ValidatePermission(role, p); err != nil {
				t.Errorf("%s should hold %s: %v", role, p, err)
			}
		}
	}

	if as.HasPermission(RoleUser, PermManageUsers) {
		t.Error("USER must not manage users")
	}
	if !as.HasPermission(RoleAdmin, PermManageUsers) {
		t.Error("ADMIN should manage users")
	}
	if as.HasPermission(Role("GUEST"), PermListLeads) {
		t.Error("unknown role must hold nothing")
	}
}

func TestValidatePermissionWrapsSentinel(t *testing.T) {
	as := NewAuthorizationService(nil)
	err := as.ValidatePermission(RoleUser, PermManageUsers)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}
