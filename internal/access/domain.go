package access

import "errors"

// CompanyRole is a user's role across the whole company.
type CompanyRole string

// StoreRole is a user's role inside a single store.
type StoreRole string

const (
	CompanyRoleOwner  CompanyRole = "owner"
	CompanyRoleAdmin  CompanyRole = "admin"
	CompanyRoleMember CompanyRole = "member"
)

const (
	StoreRoleManager StoreRole = "manager"
	StoreRoleSeller  StoreRole = "seller"
	StoreRoleViewer  StoreRole = "viewer"
)

// ReadRoles may read actions and units of a store.
var ReadRoles = []StoreRole{StoreRoleManager, StoreRoleSeller, StoreRoleViewer}

// WriteRoles may edit units of a store.
var WriteRoles = []StoreRole{StoreRoleManager}

var (
	// ErrUnauthenticated indicates a request without a valid session.
	ErrUnauthenticated = errors.New("access: unauthenticated")
	// ErrForbidden indicates the principal lacks the required role.
	ErrForbidden = errors.New("access: forbidden")
	// ErrUserNotFound indicates the session points at a deleted user.
	ErrUserNotFound = errors.New("access: user not found")
)

// Principal describes the authenticated actor and its roles.
type Principal struct {
	UserID      int64
	CompanyRole CompanyRole
	StoreRoles  map[int64]StoreRole
}

// IsAdmin reports whether the principal may act in every store.
func (p Principal) IsAdmin() bool {
	return p.CompanyRole == CompanyRoleOwner || p.CompanyRole == CompanyRoleAdmin
}

// RoleIn returns the principal's role in the store.
func (p Principal) RoleIn(storeID int64) (StoreRole, bool) {
	role, ok := p.StoreRoles[storeID]
	return role, ok
}

// HasStoreRole reports whether the principal holds one of roles in the store.
// Admins always pass.
func (p Principal) HasStoreRole(storeID int64, roles ...StoreRole) bool {
	if p.IsAdmin() {
		return true
	}
	role, ok := p.RoleIn(storeID)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanRead reports read access to the store.
func (p Principal) CanRead(storeID int64) bool {
	return p.HasStoreRole(storeID, ReadRoles...)
}

// CanWrite reports unit write access to the store.
func (p Principal) CanWrite(storeID int64) bool {
	return p.HasStoreRole(storeID, WriteRoles...)
}
