package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FS stores files in a local uploads directory. Keys are sanitized file
// names; writes go through a temp file and rename so a crash never leaves a
// partially written upload visible.
type FS struct {
	root string
}

var _ Store = (*FS)(nil)

// NewFS creates the uploads directory if needed and returns a filesystem
// store rooted there.
func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &FS{root: root}, nil
}

func (s *FS) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	dest, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write upload: %w", err)
	}
	if size >= 0 && written != size {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

func (s *FS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *FS) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FS) RedirectURL(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

// path rejects keys that would escape the uploads directory.
func (s *FS) path(key string) (string, error) {
	base := filepath.Base(strings.TrimSpace(key))
	if base == "" || base == "." || base == ".." {
		return "", fmt.Errorf("invalid file key %q", key)
	}
	return filepath.Join(s.root, base), nil
}
