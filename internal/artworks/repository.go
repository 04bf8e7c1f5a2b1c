package artworks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"visioncloud-backend/internal/illustration"
	"visioncloud-backend/internal/shared/storage/object"
	"visioncloud-backend/internal/shared/telemetry"
	"visioncloud-backend/internal/vision"
)

// OriginalName is the blob name used for the uploaded image.
const OriginalName = "original"

// NewArtwork is the pipeline output handed to Repository.Create.
type NewArtwork struct {
	UserID              string
	Title               string
	Genres              []vision.Genre
	Analysis            vision.Analysis
	Original            []byte
	OriginalContentType string
	Illustrations       illustration.Set
}

// ImageURLs maps "original" and each story section to a public URL. Sections without an
// illustration map to nil.
type ImageURLs map[string]*string

// Repository stores artwork records together with their blobs.
type Repository struct {
	Records Repo
	Blobs   object.ObjectStore
	Now     func() time.Time
	NewID   func() string
}

// NewRepository wires a record store and a blob store.
func NewRepository(records Repo, blobs object.ObjectStore) *Repository {
	return &Repository{Records: records, Blobs: blobs, Now: timestamp, NewID: uuid.NewString}
}

// Create assigns an id, writes the original and every non-nil illustration, then inserts
// the record. Blobs already written are removed when a later step fails.
func (r *Repository) Create(ctx context.Context, in NewArtwork) (Artwork, ImageURLs, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.Title) == "" {
		return Artwork{}, nil, fmt.Errorf("%w: userId and title are required", ErrInvalidInput)
	}
	if len(in.Original) == 0 {
		return Artwork{}, nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}

	a := Artwork{
		ID:                  r.NewID(),
		UserID:              in.UserID,
		Title:               in.Title,
		Genres:              in.Genres,
		Analysis:            in.Analysis,
		OriginalContentType: in.OriginalContentType,
		IllustrationKeys:    make(map[string]string),
		CreatedAt:           r.Now(),
	}
	if a.Genres == nil {
		a.Genres = []vision.Genre{}
	}

	var written []string
	put := func(category, name, contentType string, data []byte) (string, error) {
		key := object.Key(category, a.ID, name, contentType)
		if _, err := r.Blobs.Put(ctx, key, contentType, bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("store %s: %w", name, err)
		}
		written = append(written, key)
		return key, nil
	}
	fail := func(err error) (Artwork, ImageURLs, error) {
		r.deleteBlobs(context.WithoutCancel(ctx), a.ID, written)
		return Artwork{}, nil, err
	}

	key, err := put(object.CategoryOriginals, OriginalName, in.OriginalContentType, in.Original)
	if err != nil {
		return fail(err)
	}
	a.OriginalKey = key

	for _, section := range vision.Sections {
		img := in.Illustrations[section]
		if img == nil || len(img.Data) == 0 {
			continue
		}
		key, err := put(object.CategoryIllustrations, section, img.MIMEType, img.Data)
		if err != nil {
			return fail(err)
		}
		a.IllustrationKeys[section] = key
	}

	if err := r.Records.Create(ctx, a); err != nil {
		return fail(fmt.Errorf("insert artwork: %w", err))
	}
	return a, r.URLs(a), nil
}

// URLs resolves the public URLs of an artwork's blobs.
func (r *Repository) URLs(a Artwork) ImageURLs {
	urls := make(ImageURLs, len(vision.Sections)+1)
	urls[OriginalName] = r.url(a.OriginalKey)
	for _, section := range vision.Sections {
		urls[section] = r.url(a.IllustrationKeys[section])
	}
	return urls
}

// OriginalURL returns the public URL of the original image, or "".
func (r *Repository) OriginalURL(key string) string {
	if u := r.url(key); u != nil {
		return *u
	}
	return ""
}

func (r *Repository) url(key string) *string {
	if key == "" {
		return nil
	}
	u := r.Blobs.URL(key)
	return &u
}

// GetByID returns the artwork when userID owns it.
func (r *Repository) GetByID(ctx context.Context, id, userID string) (Artwork, error) {
	a, err := r.Records.GetByID(ctx, id)
	if err != nil {
		return Artwork{}, err
	}
	if a.UserID != userID {
		return Artwork{}, ErrForbidden
	}
	return a, nil
}

// OpenOriginal streams the uploaded image. Shared artworks are readable by anyone.
func (r *Repository) OpenOriginal(ctx context.Context, id, userID string) (io.ReadCloser, string, error) {
	a, err := r.Records.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !a.Shared && a.UserID != userID {
		return nil, "", ErrForbidden
	}
	rc, err := r.Blobs.Open(ctx, a.OriginalKey)
	if err != nil {
		return nil, "", fmt.Errorf("open original %s: %w", a.OriginalKey, err)
	}
	return rc, a.OriginalContentType, nil
}

// ListByUser returns userID's summaries newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Summary, error) {
	return r.Records.ListByUser(ctx, userID)
}

// ListShared returns shared summaries newest first.
func (r *Repository) ListShared(ctx context.Context, limit int) ([]Summary, error) {
	return r.Records.ListShared(ctx, limit)
}

// SetShared toggles public visibility after an ownership check.
func (r *Repository) SetShared(ctx context.Context, id, userID string, shared bool) error {
	if _, err := r.GetByID(ctx, id, userID); err != nil {
		return err
	}
	return r.Records.SetShared(ctx, id, shared)
}

// Delete verifies ownership, removes blobs best-effort, then removes the record.
// Blob failures are logged once per key and never block the record delete.
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	a, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	r.deleteBlobs(ctx, a.ID, a.BlobKeys())
	return r.Records.Delete(ctx, id)
}

func (r *Repository) deleteBlobs(ctx context.Context, artworkID string, keys []string) {
	for _, key := range keys {
		if err := r.Blobs.Delete(ctx, key); err != nil {
			telemetry.Warn("artwork.blob_delete_failed", map[string]any{
				"artwork_id": artworkID,
				"key":        key,
				"error":      err.Error(),
			})
		}
	}
}
