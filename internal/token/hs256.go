package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Engine signs tokens with a shared HMAC-SHA256 secret. Suited to
// single-service deployments where issuer and verifier are the same process.
type HS256Engine struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewHS256 builds an HMAC engine. The secret must be at least 32 bytes so the
// key is not weaker than the hash.
func NewHS256(secret string, accessTTL, refreshTTL time.Duration) (*HS256Engine, error) {
	if len(secret) < 32 {
		return nil, errors.New("hs256 secret must be at least 32 bytes")
	}
	return &HS256Engine{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (e *HS256Engine) Algorithm() string { return "HS256" }

func (e *HS256Engine) Issue(userID int64, role string, typ Type) (string, error) {
	ttl := e.accessTTL
	if typ == TypeRefresh {
		ttl = e.refreshTTL
	}
	claims := newClaims(userID, role, typ, ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (e *HS256Engine) IssuePair(userID int64, role string) (Pair, error) {
	access, err := e.Issue(userID, role, TypeAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := e.Issue(userID, role, TypeRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *HS256Engine) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// Reject algorithm substitution, including "none" and RS256
		// tokens signed with the public key as an HMAC secret.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return e.secret, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
