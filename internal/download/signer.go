// Package download gates file downloads: it issues and validates signed,
// expiring download tokens and applies the referer fall-back policy for
// unsigned requests.
package download

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TTL is the validity window of a signed download URL.
const TTL = time.Hour

var (
	// ErrExpired indicates the signed URL is past its validity window.
	ErrExpired = errors.New("download link has expired")
	// ErrBadSignature indicates the signature does not match or is malformed.
	ErrBadSignature = errors.New("invalid download signature")
)

// Signer issues and validates download tokens. A token is the HMAC-SHA256 of
// "resourceID:timestampMillis" under a server-held secret; validity is
// recomputed on every check, nothing is persisted.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// Option configures Signer.
type Option func(*Signer)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Signer) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewSigner constructs a Signer around the shared secret.
func NewSigner(secret string, opts ...Option) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("download secret is not configured")
	}
	s := &Signer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign produces a signature and issuance timestamp (epoch milliseconds) for
// resourceID, plus the expiry instant.
func (s *Signer) Sign(resourceID string) (sig string, timestamp int64, expiresAt time.Time) {
	issued := s.now()
	timestamp = issued.UnixMilli()
	return s.compute(resourceID, timestamp), timestamp, issued.Add(TTL)
}

// Validate recomputes the expected signature for (resourceID, timestamp) and
// checks both the byte equality of the signatures and the validity window.
func (s *Signer) Validate(resourceID, sig, timestamp string) error {
	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if s.now().UnixMilli()-ts > TTL.Milliseconds() {
		return ErrExpired
	}
	expected := s.compute(resourceID, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrBadSignature
	}
	return nil
}

func (s *Signer) compute(resourceID string, timestamp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", resourceID, timestamp)
	return hex.EncodeToString(mac.Sum(nil))
}
