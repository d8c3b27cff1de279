package identity

import (
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Principal is the authenticated caller of an operation
type Principal struct {
	UserID   uuid.UUID
	Username string
	Role     Role
}

// NewPrincipal builds a principal, rejecting unknown roles
func NewPrincipal(userID uuid.UUID, username string, role Role) (Principal, error) {
	if !role.IsValid() {
		return Principal{}, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+string(role))
	}
	return Principal{UserID: userID, Username: username, Role: role}, nil
}

// Can reports whether the principal holds perm
func (p Principal) Can(perm Permission) bool {
	return p.Role.HasPermission(perm)
}

// IsAdmin reports whether the principal is an operator
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanAccess checks an own-scoped permission against a record owner. Holders
// of the ":all" variant pass for any owner, including unowned records.
func (p Principal) CanAccess(perm Permission, owner *uuid.UUID) bool {
	if p.Can(perm.AllScoped()) {
		return true
	}
	if !p.Can(perm) {
		return false
	}
	return owner != nil && *owner == p.UserID
}

// Authorize returns shared.ErrForbidden unless CanAccess holds
func (p Principal) Authorize(perm Permission, owner *uuid.UUID) error {
	if !p.CanAccess(perm, owner) {
		return shared.ErrForbidden
	}
	return nil
}
