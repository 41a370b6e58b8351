package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lggm33/DUAD/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newHS256(t *testing.T, accessTTL, refreshTTL time.Duration) *HS256Engine {
	t.Helper()
	e, err := NewHS256(testSecret, accessTTL, refreshTTL)
	if err != nil {
		t.Fatalf("NewHS256() error = %v", err)
	}
	return e
}

func generateKeyPair(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})
	return privPEM, pubPEM
}

func TestHS256_IssueAndVerify(t *testing.T) {
	engine := newHS256(t, 15*time.Minute, 7*24*time.Hour)

	raw, err := engine.Issue(42, "admin", TypeAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := engine.Verify(raw)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want %q", claims.Role, "admin")
	}
	if claims.Type != TypeAccess {
		t.Errorf("Type = %q, want %q", claims.Type, TypeAccess)
	}
	if claims.ID == "" {
		t.Error("expected a token id to be set")
	}
	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID() error = %v", err)
	}
	if userID != 42 {
		t.Errorf("UserID() = %d, want 42", userID)
	}

	wantExpiry := time.Now().Add(15 * time.Minute)
	if diff := claims.ExpiresAt.Time.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("ExpiresAt = %v, want about %v", claims.ExpiresAt.Time, wantExpiry)
	}
}

func TestHS256_RefreshUsesLongerTTL(t *testing.T) {
	engine := newHS256(t, 15*time.Minute, 7*24*time.Hour)

	raw, err := engine.Issue(7, "customer", TypeRefresh)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := engine.Verify(raw)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Type != TypeRefresh {
		t.Errorf("Type = %q, want %q", claims.Type, TypeRefresh)
	}
	if remaining := time.Until(claims.ExpiresAt.Time); remaining < 6*24*time.Hour {
		t.Errorf("refresh expiry too close: %v remaining", remaining)
	}
}

func TestNewHS256_RejectsShortSecret(t *testing.T) {
	if _, err := NewHS256("too-short", time.Minute, time.Hour); err == nil {
		t.Fatal("expected an error for a short secret")
	}
}

func TestIssuePair_DistinctTokenIDs(t *testing.T) {
	engine := newHS256(t, 15*time.Minute, 7*24*time.Hour)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		pair, err := engine.IssuePair(9, "customer")
		if err != nil {
			t.Fatalf("IssuePair() error = %v", err)
		}
		for _, raw := range []string{pair.AccessToken, pair.RefreshToken} {
			claims, err := engine.Verify(raw)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if seen[claims.ID] {
				t.Fatalf("token id %q issued twice", claims.ID)
			}
			seen[claims.ID] = true
		}
	}
	if len(seen) != 4 {
		t.Errorf("unique token ids = %d, want 4", len(seen))
	}
}

func TestVerify_Expired(t *testing.T) {
	engine := newHS256(t, -time.Minute, time.Hour)

	raw, err := engine.Issue(1, "customer", TypeAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	_, err = engine.Verify(raw)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("Verify() error = %v, want ErrExpired", err)
	}
}

func TestVerify_Tampered(t *testing.T) {
	engine := newHS256(t, 15*time.Minute, time.Hour)

	raw, err := engine.Issue(1, "customer", TypeAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %q", raw)
	}
	parts[2] = parts[2][:len(parts[2])-2] + "xx"
	_, err = engine.Verify(strings.Join(parts, "."))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify() error = %v, want ErrInvalid", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	engine := newHS256(t, 15*time.Minute, time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := engine.Verify(raw); !errors.Is(err, ErrInvalid) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalid", raw, err)
		}
	}
}

func TestRS256_IssueAndVerify(t *testing.T) {
	privPEM, pubPEM := generateKeyPair(t)
	engine, err := NewRS256(privPEM, pubPEM, 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewRS256() error = %v", err)
	}

	pair, err := engine.IssuePair(3, "customer")
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}
	claims, err := engine.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Type != TypeAccess {
		t.Errorf("Type = %q, want %q", claims.Type, TypeAccess)
	}
	if claims.Role != "customer" {
		t.Errorf("Role = %q, want %q", claims.Role, "customer")
	}
}

func TestNewRS256_MismatchedPair(t *testing.T) {
	privPEM, _ := generateKeyPair(t)
	_, otherPub := generateKeyPair(t)

	if _, err := NewRS256(privPEM, otherPub, time.Minute, time.Hour); err == nil {
		t.Fatal("expected an error for mismatched keys")
	}
}

func TestVerify_CrossAlgorithmRejected(t *testing.T) {
	hs := newHS256(t, 15*time.Minute, time.Hour)
	privPEM, pubPEM := generateKeyPair(t)
	rs, err := NewRS256(privPEM, pubPEM, 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewRS256() error = %v", err)
	}

	hsToken, err := hs.Issue(1, "customer", TypeAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	rsToken, err := rs.Issue(1, "customer", TypeAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := rs.Verify(hsToken); !errors.Is(err, ErrInvalid) {
		t.Errorf("RS engine accepted HMAC token, error = %v", err)
	}
	if _, err := hs.Verify(rsToken); !errors.Is(err, ErrInvalid) {
		t.Errorf("HS engine accepted RSA token, error = %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	privPEM, pubPEM := generateKeyPair(t)

	tests := []struct {
		name    string
		cfg     config.JWTConfig
		want    string
		wantErr bool
	}{
		{
			name: "rs256",
			cfg: config.JWTConfig{
				Algorithm:  "RS256",
				PrivateKey: string(privPEM),
				PublicKey:  string(pubPEM),
				AccessTTL:  config.Duration{Duration: 15 * time.Minute},
				RefreshTTL: config.Duration{Duration: 7 * 24 * time.Hour},
			},
			want: "RS256",
		},
		{
			name: "hs256",
			cfg: config.JWTConfig{
				Algorithm:  "HS256",
				Secret:     testSecret,
				AccessTTL:  config.Duration{Duration: 15 * time.Minute},
				RefreshTTL: config.Duration{Duration: 7 * 24 * time.Hour},
			},
			want: "HS256",
		},
		{
			name:    "unknown algorithm",
			cfg:     config.JWTConfig{Algorithm: "ES256"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := FromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("FromConfig() error = %v", err)
			}
			if got := engine.Algorithm(); got != tt.want {
				t.Errorf("Algorithm() = %q, want %q", got, tt.want)
			}
		})
	}
}
