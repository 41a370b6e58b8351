// Package revocation tracks withdrawn token ids until their natural expiry.
// Verification consults the store on every request, so a logout takes effect
// immediately even though the signature on the token stays valid.
package revocation

import (
	"context"
	"time"
)

// Store records revoked token ids. Entries only need to live until the
// token's own expiry; after that the expiry check rejects the token anyway.
type Store interface {
	// Revoke marks jti as revoked until expiresAt. Revoking an already
	// expired token is a no-op.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error

	// IsRevoked reports whether jti has been revoked. Callers must treat
	// an error as revoked; a store outage must not let revoked tokens
	// back in.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
