package artworks

import (
	"time"

	"visioncloud-backend/internal/vision"
)

// Artwork is the persisted aggregate: the original image, its analysis and story, and the
// generated illustrations.
type Artwork struct {
	ID                  string
	UserID              string
	Title               string
	Genres              []vision.Genre
	Analysis            vision.Analysis
	OriginalKey         string
	OriginalContentType string
	// IllustrationKeys maps a section to its blob key. Missing sections had no image.
	IllustrationKeys map[string]string
	Shared           bool
	CreatedAt        time.Time
}

// Summary is the list projection of an Artwork. It carries no analysis payload.
type Summary struct {
	ID          string
	UserID      string
	Title       string
	Genres      []vision.Genre
	OriginalKey string
	Shared      bool
	CreatedAt   time.Time
}

// Summary projects a to its list view.
func (a Artwork) Summary() Summary {
	return Summary{
		ID:          a.ID,
		UserID:      a.UserID,
		Title:       a.Title,
		Genres:      a.Genres,
		OriginalKey: a.OriginalKey,
		Shared:      a.Shared,
		CreatedAt:   a.CreatedAt,
	}
}

// BlobKeys returns the original key followed by every illustration key in section order.
func (a Artwork) BlobKeys() []string {
	keys := make([]string, 0, 1+len(a.IllustrationKeys))
	if a.OriginalKey != "" {
		keys = append(keys, a.OriginalKey)
	}
	for _, section := range vision.Sections {
		if key := a.IllustrationKeys[section]; key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
