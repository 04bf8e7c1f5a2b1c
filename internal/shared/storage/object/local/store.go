package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"visioncloud-backend/internal/shared/storage/object"
)

// Store implements ObjectStore using the local filesystem. Files are expected to be
// served by the API under baseURL.
type Store struct {
	baseDir string
	baseURL string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir, baseURL string) *Store {
	return &Store{baseDir: baseDir, baseURL: baseURL}
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.baseDir }

// Put writes the reader to disk at key and returns its public URL. The served content type
// comes from the key's extension, so contentType is not stored.
func (s *Store) Put(ctx context.Context, key string, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath, clean, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write body: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return s.URL(clean), nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, _, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// Delete removes the object at key. Missing files are reported as errors.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, _, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL for key.
func (s *Store) URL(key string) string {
	return object.JoinURL(s.baseURL, key)
}

func (s *Store) resolve(key string) (string, string, error) {
	clean, err := object.CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), clean, nil
}

var _ object.ObjectStore = (*Store)(nil)
