package download

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSignerRoundTrip(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	s, err := NewSigner("secret", WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	sig, ts, expiresAt := s.Sign("res-1")
	if ts != now.UnixMilli() {
		t.Fatalf("timestamp = %d, want %d", ts, now.UnixMilli())
	}
	if want := now.Add(TTL); !expiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", expiresAt, want)
	}
	if err := s.Validate("res-1", sig, strconv.FormatInt(ts, 10)); err != nil {
		t.Fatalf("validate fresh token: %v", err)
	}
}

func TestSignerWindowEdges(t *testing.T) {
	issued := time.UnixMilli(0)
	s, err := NewSigner("secret", WithClock(fixedClock(issued)))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	sig, ts, _ := s.Sign("res-1")
	tsStr := strconv.FormatInt(ts, 10)

	// One millisecond inside the window.
	late, _ := NewSigner("secret", WithClock(fixedClock(time.UnixMilli(TTL.Milliseconds()-1))))
	if err := late.Validate("res-1", sig, tsStr); err != nil {
		t.Fatalf("valid at window edge: %v", err)
	}

	// Exactly at the boundary still passes (now - ts == TTL).
	edge, _ := NewSigner("secret", WithClock(fixedClock(time.UnixMilli(TTL.Milliseconds()))))
	if err := edge.Validate("res-1", sig, tsStr); err != nil {
		t.Fatalf("valid at exact boundary: %v", err)
	}

	// One millisecond past the window.
	expired, _ := NewSigner("secret", WithClock(fixedClock(time.UnixMilli(TTL.Milliseconds()+1))))
	if err := expired.Validate("res-1", sig, tsStr); !errors.Is(err, ErrExpired) {
		t.Fatalf("past window: got %v, want ErrExpired", err)
	}
}

func TestSignerRejectsMutatedSignature(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	s, _ := NewSigner("secret", WithClock(fixedClock(now)))
	sig, ts, _ := s.Sign("res-1")
	tsStr := strconv.FormatInt(ts, 10)

	// Flip a single hex character.
	mutated := []byte(sig)
	if mutated[0] == 'a' {
		mutated[0] = 'b'
	} else {
		mutated[0] = 'a'
	}
	if err := s.Validate("res-1", string(mutated), tsStr); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("mutated signature: got %v, want ErrBadSignature", err)
	}
}

func TestSignerRejectsWrongResourceAndBadTimestamp(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	s, _ := NewSigner("secret", WithClock(fixedClock(now)))
	sig, ts, _ := s.Sign("res-1")

	if err := s.Validate("res-2", sig, strconv.FormatInt(ts, 10)); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("wrong resource: got %v", err)
	}
	if err := s.Validate("res-1", sig, "not-a-number"); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("bad timestamp: got %v", err)
	}
	// A tampered timestamp breaks the signature even inside the window.
	if err := s.Validate("res-1", sig, strconv.FormatInt(ts+1, 10)); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("tampered timestamp: got %v", err)
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner("   "); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestRefererPolicy(t *testing.T) {
	p := NewRefererPolicy([]string{"https://campusshare.example", "http://localhost:3000"})

	cases := []struct {
		referer string
		want    bool
	}{
		{"", true}, // absent referer is permitted through
		{"https://campusshare.example/resources/42", true},
		{"http://localhost:3000/", true},
		{"https://evil.example/", false},
	}
	for _, tc := range cases {
		if got := p.Allow(tc.referer); got != tc.want {
			t.Errorf("Allow(%q) = %v, want %v", tc.referer, got, tc.want)
		}
	}
}
