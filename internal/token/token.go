// Package token issues and verifies the signed credentials that authenticate
// every request. Two engines implement the same interface, one per supported
// signing algorithm; the rest of the service works against Engine and never
// inspects the algorithm again after startup.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lggm33/DUAD/internal/config"
)

// Type distinguishes short-lived access tokens from long-lived refresh
// tokens. The type travels inside the signed claims so one kind can never be
// presented where the other is expected.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

const issuerName = "commerce-api"

var (
	// ErrExpired marks a token whose expiry has passed. The signature was
	// otherwise valid.
	ErrExpired = errors.New("token expired")

	// ErrInvalid marks a token that failed parsing or signature
	// verification.
	ErrInvalid = errors.New("token invalid")
)

// Claims carried by every issued token.
type Claims struct {
	Role string `json:"role"`
	Type Type   `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into the numeric user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not a user id", ErrInvalid, c.Subject)
	}
	return id, nil
}

// Pair bundles the access and refresh tokens returned by login.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Engine signs and verifies tokens. Exactly one engine is active per process,
// selected from configuration at startup.
type Engine interface {
	// Issue signs a single token of the given type for the user.
	Issue(userID int64, role string, typ Type) (string, error)

	// IssuePair signs a fresh access and refresh token for the user. Each
	// token carries its own unique id.
	IssuePair(userID int64, role string) (Pair, error)

	// Verify checks the signature and registered claims of raw and returns
	// the decoded claims. Failures are ErrExpired or ErrInvalid.
	Verify(raw string) (*Claims, error)

	// Algorithm reports the JWT signing algorithm name.
	Algorithm() string
}

// FromConfig builds the engine the configuration selects. This is the only
// place the algorithm is branched on.
func FromConfig(cfg config.JWTConfig) (Engine, error) {
	switch cfg.Algorithm {
	case "RS256":
		return NewRS256([]byte(cfg.PrivateKey), []byte(cfg.PublicKey), cfg.AccessTTL.Duration, cfg.RefreshTTL.Duration)
	case "HS256":
		return NewHS256(cfg.Secret, cfg.AccessTTL.Duration, cfg.RefreshTTL.Duration)
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.Algorithm)
	}
}

// newClaims assembles the claim set for one token. Every issuance gets a
// fresh random token id so revocation can target individual tokens.
func newClaims(userID int64, role string, typ Type, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuerName,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// mapParseError folds the jwt library's error chain into the package
// sentinels.
func mapParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrExpired, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}
