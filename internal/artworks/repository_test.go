package artworks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visioncloud-backend/internal/illustration"
	"visioncloud-backend/internal/llm"
	"visioncloud-backend/internal/vision"
)

func threeIllustrations() illustration.Set {
	return illustration.Set{
		vision.SectionIntroduction: {Data: []byte("intro"), MIMEType: "image/png"},
		vision.SectionRisingAction: nil,
		vision.SectionTwist:        {Data: []byte("twist"), MIMEType: "image/png"},
		vision.SectionClimax:       nil,
		vision.SectionResolution:   {Data: []byte("end"), MIMEType: "image/jpeg"},
	}
}

func newArtworkFor(userID string) NewArtwork {
	return NewArtwork{
		UserID:              userID,
		Title:               "Sunset",
		Genres:              []vision.Genre{{ID: "fantasy"}},
		Analysis:            *vision.Empty([]vision.Genre{{ID: "fantasy"}}),
		Original:            []byte("original-bytes"),
		OriginalContentType: "image/png",
		Illustrations:       threeIllustrations(),
	}
}

func TestRepositoryCreateStoresBlobsAndReturnsURLs(t *testing.T) {
	blobs := newMemBlobs()
	repo := newTestRepository(NewMemoryRepo(), blobs)

	a, urls, err := repo.Create(context.Background(), newArtworkFor("user-b"))
	require.NoError(t, err)

	assert.Equal(t, "art-1", a.ID)
	assert.Equal(t, fixedClock(), a.CreatedAt)
	assert.Equal(t, "originals/art-1_original.png", a.OriginalKey)
	assert.Equal(t, map[string]string{
		vision.SectionIntroduction: "illustrations/art-1_introduction.png",
		vision.SectionTwist:        "illustrations/art-1_twist.png",
		vision.SectionResolution:   "illustrations/art-1_resolution.jpg",
	}, a.IllustrationKeys)
	assert.Equal(t, 4, blobs.len())

	require.Len(t, urls, 6)
	require.NotNil(t, urls[OriginalName])
	assert.Equal(t, "https://cdn.test/originals/art-1_original.png", *urls[OriginalName])
	require.NotNil(t, urls[vision.SectionTwist])
	assert.Equal(t, "https://cdn.test/illustrations/art-1_twist.png", *urls[vision.SectionTwist])
	assert.Nil(t, urls[vision.SectionRisingAction])
	assert.Nil(t, urls[vision.SectionClimax])

	stored, err := repo.Records.GetByID(context.Background(), "art-1")
	require.NoError(t, err)
	assert.Equal(t, "user-b", stored.UserID)
}

func TestRepositoryCreateRequiresUserTitleAndImage(t *testing.T) {
	repo := newTestRepository(NewMemoryRepo(), newMemBlobs())

	in := newArtworkFor("")
	_, _, err := repo.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = newArtworkFor("user-b")
	in.Original = nil
	_, _, err = repo.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRepositoryCreateRemovesBlobsWhenInsertFails(t *testing.T) {
	blobs := newMemBlobs()
	repo := newTestRepository(failingRecords{NewMemoryRepo()}, blobs)

	_, _, err := repo.Create(context.Background(), newArtworkFor("user-b"))
	require.Error(t, err)
	assert.Equal(t, 0, blobs.len())
	assert.Len(t, blobs.deleted, 4)
}

func TestRepositoryCreateRemovesBlobsWhenIllustrationPutFails(t *testing.T) {
	blobs := newMemBlobs()
	blobs.failPut["illustrations/art-1_twist.png"] = true
	records := NewMemoryRepo()
	repo := newTestRepository(records, blobs)

	_, _, err := repo.Create(context.Background(), newArtworkFor("user-b"))
	require.Error(t, err)
	assert.Equal(t, 0, blobs.len())
	_, err = records.GetByID(context.Background(), "art-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryDeleteToleratesOneBlobFailure(t *testing.T) {
	blobs := newMemBlobs()
	records := NewMemoryRepo()
	repo := newTestRepository(records, blobs)
	a, _, err := repo.Create(context.Background(), newArtworkFor("user-b"))
	require.NoError(t, err)
	require.Len(t, a.BlobKeys(), 4)

	failing := a.IllustrationKeys[vision.SectionTwist]
	blobs.failDelete[failing] = true
	logs := captureLogs(t)

	require.NoError(t, repo.Delete(context.Background(), a.ID, "user-b"))

	_, err = records.GetByID(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	warned := logLines(t, logs, "artwork.blob_delete_failed")
	require.Len(t, warned, 1)
	assert.Equal(t, "warn", warned[0]["level"])
	assert.Equal(t, failing, warned[0]["key"])
	assert.Equal(t, a.ID, warned[0]["artwork_id"])

	assert.True(t, blobs.has(failing))
	assert.False(t, blobs.has(a.OriginalKey))
	assert.Len(t, blobs.deleted, 3)
}

func TestRepositoryOwnership(t *testing.T) {
	blobs := newMemBlobs()
	records := NewMemoryRepo()
	repo := newTestRepository(records, blobs)
	a, _, err := repo.Create(context.Background(), newArtworkFor("user-b"))
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), a.ID, "user-a")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, got.ID)
	assert.Nil(t, got.Analysis.Labels)

	assert.ErrorIs(t, repo.Delete(context.Background(), a.ID, "user-a"), ErrForbidden)
	assert.ErrorIs(t, repo.SetShared(context.Background(), a.ID, "user-a", true), ErrForbidden)
	_, err = records.GetByID(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, 4, blobs.len())

	_, err = repo.GetByID(context.Background(), "missing", "user-a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositorySharingFeedsCommunity(t *testing.T) {
	repo := newTestRepository(NewMemoryRepo(), newMemBlobs())
	a, _, err := repo.Create(context.Background(), newArtworkFor("user-b"))
	require.NoError(t, err)

	shared, err := repo.ListShared(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, shared)

	require.NoError(t, repo.SetShared(context.Background(), a.ID, "user-b", true))
	shared, err = repo.ListShared(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, a.ID, shared[0].ID)
	assert.True(t, shared[0].Shared)
}

func TestRepositoryCreateSkipsEmptyImages(t *testing.T) {
	blobs := newMemBlobs()
	repo := newTestRepository(NewMemoryRepo(), blobs)
	in := newArtworkFor("user-b")
	in.Illustrations = illustration.Set{vision.SectionClimax: &llm.Image{MIMEType: "image/png"}}

	a, urls, err := repo.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, a.IllustrationKeys)
	assert.Nil(t, urls[vision.SectionClimax])
	assert.Equal(t, 1, blobs.len())
}

func TestMemoryRepoListsNewestFirst(t *testing.T) {
	records := NewMemoryRepo()
	ctx := context.Background()
	base := fixedClock()
	for i, id := range []string{"old", "new", "mid"} {
		offsets := []int{0, 2, 1}
		require.NoError(t, records.Create(ctx, Artwork{
			ID:        id,
			UserID:    "u",
			CreatedAt: base.AddDate(0, 0, offsets[i]),
		}))
	}
	require.NoError(t, records.Create(ctx, Artwork{ID: "other", UserID: "v", CreatedAt: base}))

	got, err := records.ListByUser(ctx, "u")
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)

	assert.True(t, errors.Is(records.Delete(ctx, "nope"), ErrNotFound))
}
