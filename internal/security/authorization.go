package security

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Role is an operator's role as stored on the account and carried in tokens
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Permission names a protected action on the operator API
type Permission string

const (
	PermListLeads        Permission = "list_leads"
	PermDeleteLead       Permission = "delete_lead"
	PermUpdateLeadStatus Permission = "update_lead_status"
	PermManageUsers      Permission = "manage_users"
)

// ErrPermissionDenied is wrapped by ValidatePermission
var ErrPermissionDenied = errors.New("permission denied")

// every operator works the lead queue; only admins manage accounts
var leadOps = []Permission{PermListLeads, PermDeleteLead, PermUpdateLeadStatus}

var grants = map[Role][]Permission{
	RoleUser:  leadOps,
	RoleAdmin: append(slices.Clone(leadOps), PermManageUsers),
}

// AuthorizationService answers role/permission questions and logs denials
type AuthorizationService struct {
	logger *slog.Logger
}

func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{logger: logger}
}

// HasPermission reports whether role grants perm. Unknown roles grant nothing.
func (as *AuthorizationService) HasPermission(role Role, perm Permission) bool {
	return slices.Contains(grants[role], perm)
}

// ValidatePermission is HasPermission returning an ErrPermissionDenied error
func (as *AuthorizationService) ValidatePermission(role Role, perm Permission) error {
	if as.HasPermission(role, perm) {
		return nil
	}
	as.logger.Warn("permission denied",
		slog.String("role", string(role)),
		slog.String("permission", string(perm)),
	)
	return fmt.Errorf("%w: %s cannot %s", ErrPermissionDenied, role, perm)
}
