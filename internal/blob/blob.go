// Package blob stores uploaded file bytes. Resources reference stored files
// by key; the download handler either streams the bytes or redirects to a
// provider URL depending on the backend.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates the backing file is missing.
var ErrNotFound = errors.New("file not found")

// Store persists raw file content under opaque keys.
type Store interface {
	// Save writes the content under key. Saving an existing key overwrites it.
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	// Open returns a reader over the stored content.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// RedirectURL returns a time-limited URL to fetch the content directly
	// from the provider, and whether the backend supports redirects at all.
	// Backends without direct URLs return ("", false, nil) and the caller
	// streams via Open instead.
	RedirectURL(ctx context.Context, key string) (string, bool, error)
}
