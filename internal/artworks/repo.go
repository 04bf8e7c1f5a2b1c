package artworks

import "context"

// Repo persists artwork records. Blob storage is handled by Repository.
type Repo interface {
	Create(ctx context.Context, a Artwork) error
	GetByID(ctx context.Context, id string) (Artwork, error)
	// ListByUser returns the user's artworks newest first.
	ListByUser(ctx context.Context, userID string) ([]Summary, error)
	// ListShared returns shared artworks newest first, at most limit entries.
	ListShared(ctx context.Context, limit int) ([]Summary, error)
	SetShared(ctx context.Context, id string, shared bool) error
	Delete(ctx context.Context, id string) error
}

// DefaultCommunityLimit bounds the community feed when no limit is requested.
const DefaultCommunityLimit = 50
