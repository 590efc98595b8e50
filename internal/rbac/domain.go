package rbac

import (
	"context"
	"time"
)

// Role is a user's role within one location.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
	RoleReader   Role = "READER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleReader:
		return true
	}
	return false
}

// Membership links a user to a location with a role.
type Membership struct {
	UserID       int64     `json:"userId"`
	LocationID   int64     `json:"locationId"`
	LocationName string    `json:"locationName"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MembershipReader loads the caller's active membership for a location.
// Implementations report httpx.ErrNotFound when none exists.
type MembershipReader interface {
	ActiveMembership(ctx context.Context, userID, locationID int64) (Membership, error)
}

// Principal describes the authenticated actor bound to a location.
type Principal struct {
	UserID     int64
	LocationID int64
	Role       Role
}

// Can reports whether the principal's role grants perm.
func (p Principal) Can(perm string) bool {
	return RoleHasPermission(p.Role, perm)
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal set by the location middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
