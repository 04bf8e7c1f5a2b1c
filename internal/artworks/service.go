package artworks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"visioncloud-backend/internal/illustration"
	"visioncloud-backend/internal/prompt"
	"visioncloud-backend/internal/shared/metrics"
	"visioncloud-backend/internal/shared/telemetry"
	"visioncloud-backend/internal/vision"
)

// DefaultImportTitle names imported artworks submitted without a title.
const DefaultImportTitle = "Imported artwork"

// Extractor turns image bytes into an Analysis.
type Extractor interface {
	Extract(ctx context.Context, image []byte, genres []vision.Genre) (*vision.Analysis, error)
}

// StoryWriter produces a story from prompt fragments and never fails.
type StoryWriter interface {
	Generate(ctx context.Context, f prompt.Fragments) (vision.Story, bool)
}

// Illustrator produces one image or nil per story section.
type Illustrator interface {
	Generate(ctx context.Context, s vision.Story) illustration.Set
}

// ImageFetcher downloads a remote image.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (data []byte, contentType string, err error)
}

// Upload is one request to run the pipeline.
type Upload struct {
	UserID      string
	Title       string
	Genres      []vision.Genre
	Image       []byte
	ContentType string
}

// ImportRequest asks the pipeline to analyze a remote image.
type ImportRequest struct {
	UserID   string         `json:"userId"`
	Title    string         `json:"title"`
	ImageURL string         `json:"imageUrl"`
	Genres   []vision.Genre `json:"genres"`
}

// Result is the pipeline response.
type Result struct {
	ID        string          `json:"id"`
	Analysis  vision.Analysis `json:"analysis"`
	ImageURLs ImageURLs       `json:"imageUrls"`
}

// Detail is a stored artwork as returned to its owner.
type Detail struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Shared      bool            `json:"shared"`
	CreatedAt   time.Time       `json:"createdAt"`
	Analysis    vision.Analysis `json:"analysis"`
	StoryImages ImageURLs       `json:"storyImages"`
}

// HistoryItem is one entry of a history or community listing.
type HistoryItem struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Genres    []vision.Genre `json:"genres"`
	CreatedAt time.Time      `json:"createdAt"`
	ImageURL  string         `json:"imageUrl"`
	Shared    bool           `json:"shared"`
}

// Service runs the artwork pipeline and serves stored artworks.
type Service struct {
	Extractor   Extractor
	Stories     StoryWriter
	Illustrator Illustrator
	Repo        *Repository
	Fetcher     ImageFetcher
	// PipelineTimeout bounds one pipeline run. Zero means no deadline.
	PipelineTimeout time.Duration
	Now             func() time.Time
}

// Process validates the upload and runs extraction, story, illustration and persistence in
// sequence. Only extraction, validation and persistence failures are returned.
func (s *Service) Process(ctx context.Context, in Upload) (Result, error) {
	if err := validateUpload(in); err != nil {
		return Result{}, err
	}

	// The pipeline outlives a disconnected client but not its own deadline.
	ctx = context.WithoutCancel(ctx)
	if s.PipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.PipelineTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.run(ctx, in)
	elapsed := time.Since(start)
	metrics.ObservePipelineDurationMs(float64(elapsed.Milliseconds()))
	if err != nil {
		metrics.IncArtworkFailed()
		telemetry.Error("artwork.failed", map[string]any{
			"user_id":     in.UserID,
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		})
		return Result{}, err
	}
	metrics.IncArtworkProcessed()
	return res, nil
}

func (s *Service) run(ctx context.Context, in Upload) (Result, error) {
	stage := func(name string, started time.Time, fields map[string]any) {
		if fields == nil {
			fields = map[string]any{}
		}
		fields["stage"] = name
		fields["user_id"] = in.UserID
		fields["duration_ms"] = time.Since(started).Milliseconds()
		telemetry.Info("artwork.stage", fields)
	}

	started := time.Now()
	analysis, err := s.Extractor.Extract(ctx, in.Image, in.Genres)
	if err != nil {
		return Result{}, err
	}
	stage("vision", started, map[string]any{"labels": len(analysis.Labels), "colors": len(analysis.Colors)})

	started = time.Now()
	fragments := prompt.Derive(analysis)
	story, fellBack := s.Stories.Generate(ctx, fragments)
	analysis.Story = &story
	stage("story", started, map[string]any{"fallback": fellBack})

	started = time.Now()
	images := s.Illustrator.Generate(ctx, story)
	stage("illustrations", started, map[string]any{"generated": images.Count()})

	started = time.Now()
	a, urls, err := s.Repo.Create(ctx, NewArtwork{
		UserID:              in.UserID,
		Title:               in.Title,
		Genres:              analysis.Genres,
		Analysis:            *analysis,
		Original:            in.Image,
		OriginalContentType: in.ContentType,
		Illustrations:       images,
	})
	if err != nil {
		return Result{}, err
	}
	stage("persist", started, map[string]any{"artwork_id": a.ID})

	return Result{ID: a.ID, Analysis: a.Analysis, ImageURLs: urls}, nil
}

// Import fetches the remote image and runs the pipeline on it.
func (s *Service) Import(ctx context.Context, req ImportRequest) (Result, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.UserID == "" || req.ImageURL == "" {
		return Result{}, fmt.Errorf("%w: missing userId or imageUrl", ErrInvalidInput)
	}
	if s.Fetcher == nil {
		return Result{}, errors.New("image import is not configured")
	}
	data, contentType, err := s.Fetcher.Fetch(ctx, req.ImageURL)
	if err != nil {
		return Result{}, fmt.Errorf("fetch image: %w", err)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultImportTitle
	}
	return s.Process(ctx, Upload{
		UserID:      req.UserID,
		Title:       title,
		Genres:      req.Genres,
		Image:       data,
		ContentType: contentType,
	})
}

// History lists userID's artworks after applying f.
func (s *Service) History(ctx context.Context, userID string, f Filter) ([]HistoryItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	items, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.historyItems(f.Apply(items, s.now())), nil
}

// Community lists shared artworks newest first.
func (s *Service) Community(ctx context.Context, limit int) ([]HistoryItem, error) {
	items, err := s.Repo.ListShared(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.historyItems(items), nil
}

// Get returns the owner's view of an artwork.
func (s *Service) Get(ctx context.Context, id, userID string) (Detail, error) {
	a, err := s.Repo.GetByID(ctx, id, userID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		ID:          a.ID,
		Title:       a.Title,
		Shared:      a.Shared,
		CreatedAt:   a.CreatedAt,
		Analysis:    a.Analysis,
		StoryImages: s.Repo.URLs(a),
	}, nil
}

// OpenOriginal returns the stored upload and its content type.
func (s *Service) OpenOriginal(ctx context.Context, id, userID string) (io.ReadCloser, string, error) {
	return s.Repo.OpenOriginal(ctx, id, userID)
}

// SetShared toggles whether an artwork appears in the community feed.
func (s *Service) SetShared(ctx context.Context, id, userID string, shared bool) error {
	return s.Repo.SetShared(ctx, id, userID, shared)
}

// Delete removes an artwork and its blobs.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	return s.Repo.Delete(ctx, id, userID)
}

func (s *Service) historyItems(items []Summary) []HistoryItem {
	out := make([]HistoryItem, 0, len(items))
	for _, item := range items {
		genres := item.Genres
		if genres == nil {
			genres = []vision.Genre{}
		}
		out = append(out, HistoryItem{
			ID:        item.ID,
			Title:     item.Title,
			Genres:    genres,
			CreatedAt: item.CreatedAt,
			ImageURL:  s.Repo.OriginalURL(item.OriginalKey),
			Shared:    item.Shared,
		})
	}
	return out
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func validateUpload(in Upload) error {
	var missing []string
	if len(in.Image) == 0 {
		missing = append(missing, "image")
	}
	if strings.TrimSpace(in.UserID) == "" {
		missing = append(missing, "userId")
	}
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if in.ContentType != "" && !strings.HasPrefix(in.ContentType, "image/") {
		return fmt.Errorf("%w: only images are allowed", ErrInvalidInput)
	}
	return nil
}
