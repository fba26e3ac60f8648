package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

var fast = &BcryptConfig{Cost: bcrypt.MinCost}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("abc", fast); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	h, err := HashPassword("admin123", fast)
	if err != nil {
		t.Fatal(err)
	}
	if err := ComparePassword(h, "admin123"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(h, "admin124"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestCredentials_Verify(t *testing.T) {
	c, err := NewCredentials("admin", "admin123", "", fast)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		user     string
		pass     string
		wantFail bool
	}{
		{"ok", "admin", "admin123", false},
		{"wrong password", "admin", "nope", true},
		{"wrong user", "root", "admin123", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Verify(tt.user, tt.pass)
			if tt.wantFail != (err != nil) {
				t.Fatalf("Verify(%q,%q) = %v", tt.user, tt.pass, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestCredentials_FromHash(t *testing.T) {
	h, _ := HashPassword("s3cret!", fast)
	c, err := NewCredentials("ops", "ignored", h, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Verify("ops", "s3cret!"); err != nil {
		t.Fatalf("hash credentials rejected: %v", err)
	}
	if _, err := NewCredentials("ops", "", "not-a-hash", nil); err == nil {
		t.Fatal("malformed hash accepted")
	}
}

func TestJWTSigner_RoundTrip(t *testing.T) {
	s := NewJWTSigner([]byte("test-secret"), "support-relay", time.Hour, 5*time.Second)
	now := time.Unix(1_700_000_000, 0)

	tok, err := s.SignAccessToken("admin", "admin", now)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("not a JWT: %q", tok)
	}

	claims := &AccessClaims{}
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("parse: %v", err)
	}
	if token.Method.Alg() != "HS256" {
		t.Fatalf("alg = %s", token.Method.Alg())
	}
	if claims.Subject != "admin" || claims.Role != "admin" || claims.Issuer != "support-relay" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ExpiresAt != now.Add(time.Hour).Unix() || claims.NotBefore != now.Add(-5*time.Second).Unix() {
		t.Fatalf("validity window %d..%d", claims.NotBefore, claims.ExpiresAt)
	}

	if _, err := parser.ParseWithClaims(tok, &AccessClaims{}, func(*jwt.Token) (any, error) {
		return []byte("other-secret"), nil
	}); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}
