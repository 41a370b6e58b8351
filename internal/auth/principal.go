// Package auth verifies bearer credentials and enforces the role and
// ownership policies guarding the API. The authenticator middleware installs
// a Principal on the request context; policy middleware downstream reads it
// back and decides access.
package auth

import (
	"context"
	"time"
)

// Roles known to the system. Tokens carrying any other role fail
// verification, so handlers only ever see these two values.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCustomer
}

// Principal is the authenticated identity extracted from a verified token.
type Principal struct {
	UserID    int64
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsCustomer reports whether the principal carries the customer role.
func (p Principal) IsCustomer() bool { return p.Role == RoleCustomer }

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const contextKeyPrincipal contextKey = "principal"

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
// Requests admitted anonymously through Optional carry none.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal).(Principal)
	return p, ok
}
