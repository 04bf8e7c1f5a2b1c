package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Blob categories used as the first key segment.
const (
	CategoryOriginals     = "originals"
	CategoryIllustrations = "illustrations"
)

// ErrInvalidKey is returned for empty keys or keys escaping the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore persists artwork blobs and exposes them under stable public URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (url string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Key builds "{category}/{artworkID}_{name}.{ext}".
func Key(category, artworkID, name, contentType string) string {
	return fmt.Sprintf("%s/%s_%s.%s", category, artworkID, name, ExtensionFor(contentType))
}

// ExtensionFor maps an image content type to a file extension.
func ExtensionFor(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	case "image/svg+xml":
		return "svg"
	}
	if strings.HasPrefix(ct, "image/") {
		return strings.TrimPrefix(ct, "image/")
	}
	return "bin"
}

// CleanKey normalizes a key to a relative slash path and rejects traversal.
func CleanKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", ErrInvalidKey
	}
	clean := path.Clean(strings.ReplaceAll(trimmed, "\\", "/"))
	if clean == "." || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// JoinURL appends key to base with exactly one slash between them.
func JoinURL(base, key string) string {
	b := strings.TrimRight(base, "/")
	k := strings.TrimLeft(key, "/")
	if b == "" {
		return "/" + k
	}
	return b + "/" + k
}
