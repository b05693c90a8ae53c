package store

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func TestJWTSessionStoreRequiresSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("   ", time.Minute); err == nil {
		t.Fatalf("expected empty secret to be rejected")
	}
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, err := s.UserIDFromToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if uid != "user-1" {
		t.Fatalf("subject = %q, want user-1", uid)
	}
}

func TestJWTSessionStoreRejectsExpiredToken(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(past),
		IssuedAt:  jwt.NewNumericDate(past.Add(-time.Minute)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	if _, err := s.UserIDFromToken(expired); err == nil {
		t.Fatalf("expected expired token to fail validation")
	}
}

func TestJWTSessionStoreRejectsTamperedToken(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := s.UserIDFromToken(tampered); err == nil {
		t.Fatalf("expected tampered signature to fail validation")
	}
}

func TestJWTSessionStoreRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTSessionStore("secret-a", time.Minute)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	verifier, err := NewJWTSessionStore("secret-b", time.Minute)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := issuer.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := verifier.UserIDFromToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}
}

func TestJWTSessionStoreRejectsGarbage(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	for _, token := range []string{"", "not.a.jwt", "garbage"} {
		if _, err := s.UserIDFromToken(token); err == nil {
			t.Fatalf("expected %q to fail validation", token)
		}
	}
}
