package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokensIssueVerify(t *testing.T) {
	tokens, err := NewTokens("test-secret")
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}

	token, expiresAt, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if until := time.Until(expiresAt); until < DefaultTokenTTL-time.Minute {
		t.Fatalf("expiry too soon: %v", until)
	}

	userID, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("subject = %q", userID)
	}
}

func TestTokensExpiry(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := issuedAt
	tokens, err := NewTokens("test-secret",
		WithTokenTTL(time.Hour),
		WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}

	token, _, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock = issuedAt.Add(59 * time.Minute)
	if _, err := tokens.Verify(token); err != nil {
		t.Fatalf("verify inside ttl: %v", err)
	}

	clock = issuedAt.Add(2 * time.Hour)
	if _, err := tokens.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("verify after ttl: got %v, want ErrExpiredToken", err)
	}
}

func TestTokensRejectsTampering(t *testing.T) {
	tokens, _ := NewTokens("test-secret")
	other, _ := NewTokens("other-secret")

	token, _, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: got %v", err)
	}
	if _, err := tokens.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: got %v", err)
	}
	if _, err := tokens.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: got %v", err)
	}

	// Swap the payload for the payload of a token from another signer.
	foreign, _, _ := other.Issue("user-2")
	parts := strings.Split(token, ".")
	foreignParts := strings.Split(foreign, ".")
	frankenstein := parts[0] + "." + foreignParts[1] + "." + parts[2]
	if _, err := tokens.Verify(frankenstein); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("spliced token: got %v", err)
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens(" "); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
