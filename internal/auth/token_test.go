package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("Verify() = %q, want %q", userID, "user-1")
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := NewTokenIssuer("secret-b", time.Hour).Verify(token); err == nil {
		t.Fatalf("Verify() with wrong secret should fail")
	}
}

func TestTokenExpiredRejected(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Fatalf("Verify() of expired token should fail")
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	if _, err := issuer.Verify("not-a-token"); err == nil {
		t.Fatalf("Verify() of garbage should fail")
	}
}
