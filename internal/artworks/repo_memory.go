package artworks

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores artworks in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Artwork
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Artwork)}
}

// Create stores the artwork.
func (r *MemoryRepo) Create(ctx context.Context, a Artwork) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = a
	return nil
}

// GetByID returns an artwork by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Artwork, error) {
	if err := ctx.Err(); err != nil {
		return Artwork{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return Artwork{}, ErrNotFound
	}
	return a, nil
}

// ListByUser returns summaries for userID, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Summary, error) {
	return r.list(ctx, 0, func(a Artwork) bool { return a.UserID == userID })
}

// ListShared returns shared summaries, newest first.
func (r *MemoryRepo) ListShared(ctx context.Context, limit int) ([]Summary, error) {
	return r.list(ctx, limit, func(a Artwork) bool { return a.Shared })
}

// SetShared updates the shared flag.
func (r *MemoryRepo) SetShared(ctx context.Context, id string, shared bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.Shared = shared
	r.byID[id] = a
	return nil
}

// Delete removes the artwork record.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepo) list(ctx context.Context, limit int, keep func(Artwork) bool) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Summary, 0)
	for _, a := range r.byID {
		if keep(a) {
			out = append(out, a.Summary())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
