package artworks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new artwork.
func (r *PGRepo) Create(ctx context.Context, a Artwork) error {
	const query = `
INSERT INTO artworks (
	id, user_id, title, genres, analysis, original_key, original_content_type,
	illustration_keys, shared, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	genres, err := marshalJSONB(a.Genres)
	if err != nil {
		return err
	}
	analysis, err := marshalJSONB(a.Analysis)
	if err != nil {
		return err
	}
	keys := a.IllustrationKeys
	if keys == nil {
		keys = map[string]string{}
	}
	illustrations, err := marshalJSONB(keys)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.Title,
		genres,
		analysis,
		a.OriginalKey,
		a.OriginalContentType,
		illustrations,
		a.Shared,
		a.CreatedAt,
	)
	return err
}

// GetByID fetches an artwork by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Artwork, error) {
	const query = `
SELECT id, user_id, title, genres, analysis, original_key, original_content_type,
	illustration_keys, shared, created_at
FROM artworks
WHERE id = $1`
	var (
		a             Artwork
		genres        []byte
		analysis      []byte
		illustrations []byte
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.UserID,
		&a.Title,
		&genres,
		&analysis,
		&a.OriginalKey,
		&a.OriginalContentType,
		&illustrations,
		&a.Shared,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artwork{}, ErrNotFound
		}
		return Artwork{}, err
	}
	if err := unmarshalJSONB(genres, &a.Genres); err != nil {
		return Artwork{}, fmt.Errorf("decode genres: %w", err)
	}
	if err := unmarshalJSONB(analysis, &a.Analysis); err != nil {
		return Artwork{}, fmt.Errorf("decode analysis: %w", err)
	}
	if err := unmarshalJSONB(illustrations, &a.IllustrationKeys); err != nil {
		return Artwork{}, fmt.Errorf("decode illustration keys: %w", err)
	}
	return a, nil
}

// ListByUser returns summaries owned by userID, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Summary, error) {
	const query = `
SELECT id, user_id, title, genres, original_key, shared, created_at
FROM artworks
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	return r.listSummaries(ctx, query, userID)
}

// ListShared returns shared summaries, newest first.
func (r *PGRepo) ListShared(ctx context.Context, limit int) ([]Summary, error) {
	const query = `
SELECT id, user_id, title, genres, original_key, shared, created_at
FROM artworks
WHERE shared
ORDER BY created_at DESC, id DESC
LIMIT $1`
	if limit <= 0 {
		limit = DefaultCommunityLimit
	}
	return r.listSummaries(ctx, query, limit)
}

// SetShared updates the shared flag.
func (r *PGRepo) SetShared(ctx context.Context, id string, shared bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE artworks SET shared = $2 WHERE id = $1`, id, shared)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes the artwork row.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM artworks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) listSummaries(ctx context.Context, query string, arg any) ([]Summary, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var (
			s      Summary
			genres []byte
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &genres, &s.OriginalKey, &s.Shared, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalJSONB(genres, &s.Genres); err != nil {
			return nil, fmt.Errorf("decode genres: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalJSONB(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalJSONB(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// timestamp returns the creation time persisted for new records.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

var _ Repo = (*PGRepo)(nil)
