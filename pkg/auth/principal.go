package auth

import "github.com/google/uuid"

// Permission names a capability checked once per request at the route boundary.
type Permission string

const (
	PermManageCatalog Permission = "catalog:manage"
	PermManageContent Permission = "content:manage"
	PermManageOrders  Permission = "orders:manage"
	PermManageUsers   Permission = "users:manage"
	PermViewReports   Permission = "reports:view"
)

var adminPermissions = map[Permission]struct{}{
	PermManageCatalog: {},
	PermManageContent: {},
	PermManageOrders:  {},
	PermManageUsers:   {},
	PermViewReports:   {},
}

// Principal is the authenticated caller.
type Principal struct {
	UserID    uuid.UUID
	Email     string
	IsAdmin   bool
	SessionID string
}

// Can reports whether the principal holds perm. Customers hold none of the
// back-office permissions.
func (p Principal) Can(perm Permission) bool {
	if p.UserID == uuid.Nil {
		return false
	}
	if _, ok := adminPermissions[perm]; ok {
		return p.IsAdmin
	}
	return false
}
