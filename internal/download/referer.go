package download

import "strings"

// RefererPolicy is the allow-list fallback applied to unsigned download
// requests. A request with no referer at all is allowed through; this keeps
// compatibility with direct link sharing and is an accepted weakness of the
// unsigned path (signed URLs are the real gate).
type RefererPolicy struct {
	allowed []string
}

// NewRefererPolicy builds a policy from allowed origin fragments
// (e.g. "localhost:5173", "campusshare.example.com").
func NewRefererPolicy(allowed []string) *RefererPolicy {
	var cleaned []string
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a != "" {
			cleaned = append(cleaned, a)
		}
	}
	return &RefererPolicy{allowed: cleaned}
}

// Allow reports whether a request carrying the given referer header may
// proceed without a signature.
func (p *RefererPolicy) Allow(referer string) bool {
	referer = strings.TrimSpace(referer)
	if referer == "" {
		return true
	}
	for _, a := range p.allowed {
		if strings.Contains(referer, a) {
			return true
		}
	}
	return false
}
