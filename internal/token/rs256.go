package token

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Engine signs tokens with an RSA private key and verifies them with
// the matching public key. Suited to deployments where other services verify
// tokens without holding signing material.
type RS256Engine struct {
	private    *rsa.PrivateKey
	public     *rsa.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewRS256 builds an RSA engine from PEM-encoded keys. The pair is checked
// for consistency so a mismatched deploy fails at startup instead of on the
// first verification.
func NewRS256(privatePEM, publicPEM []byte, accessTTL, refreshTTL time.Duration) (*RS256Engine, error) {
	private, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}
	if private.PublicKey.N.Cmp(public.N) != 0 || private.PublicKey.E != public.E {
		return nil, fmt.Errorf("rsa public key does not match private key")
	}
	return &RS256Engine{
		private:    private,
		public:     public,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (e *RS256Engine) Algorithm() string { return "RS256" }

func (e *RS256Engine) Issue(userID int64, role string, typ Type) (string, error) {
	ttl := e.accessTTL
	if typ == TypeRefresh {
		ttl = e.refreshTTL
	}
	claims := newClaims(userID, role, typ, ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(e.private)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (e *RS256Engine) IssuePair(userID int64, role string) (Pair, error) {
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

func (e *RS256Engine) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return e.public, nil
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
