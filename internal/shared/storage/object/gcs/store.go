package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"visioncloud-backend/internal/shared/storage/object"
)

const defaultPublicBase = "https://storage.googleapis.com"

// Store implements ObjectStore on a Google Cloud Storage bucket. Objects are
// addressed by their public storage.googleapis.com URL.
type Store struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed store using application default credentials.
func New(ctx context.Context, bucket string) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Put streams r into the bucket at key.
func (s *Store) Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	clean, err := object.CleanKey(key)
	if err != nil {
		return "", err
	}
	w := s.client.Bucket(s.bucket).Object(clean).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write bucket=%s key=%s: %w", s.bucket, clean, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close bucket=%s key=%s: %w", s.bucket, clean, err)
	}
	return s.URL(clean), nil
}

// Open reads the object at key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs read bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return rc, nil
}

// Delete removes the object at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("gcs delete bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return nil
}

// URL returns the public URL of key.
func (s *Store) URL(key string) string {
	return publicURL(s.bucket, key)
}

func publicURL(bucket, key string) string {
	return object.JoinURL(defaultPublicBase+"/"+bucket, key)
}

var _ object.ObjectStore = (*Store)(nil)
