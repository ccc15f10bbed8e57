package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "media.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)

	m := &Media{ID: "m1", Filename: "IMG_1.jpg", Path: "/photos/IMG_1.jpg", Kind: KindImage}
	require.NoError(t, s.PutMedia(ctx, m))
	assert.False(t, m.CreatedAt.IsZero(), "PutMedia should set CreatedAt")

	require.NoError(t, s.UpdateAnalysis(ctx, "m1", "A red bicycle.", []string{"bicycle", "red"}))
	require.NoError(t, s.RenameMedia(ctx, "m1", "/photos/red_bicycle.jpg", "red_bicycle.jpg"))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)

	got, err := reopened.GetMedia(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A red bicycle.", got.Description)
	assert.Equal(t, []string{"bicycle", "red"}, got.Tags)
	assert.True(t, got.Analyzed)
	assert.False(t, got.AnalyzedAt.IsZero())
	assert.Equal(t, "/photos/red_bicycle.jpg", got.Path)
	assert.Equal(t, "red_bicycle.jpg", got.Filename)
}

func TestFileStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	got, err := s.GetMedia(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.FindByPath(ctx, "/nowhere.jpg")
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.UpdateAnalysis(ctx, "missing", "d", nil), ErrNotFound)
	assert.ErrorIs(t, s.RenameMedia(ctx, "missing", "/a.jpg", "a.jpg"), ErrNotFound)
}

func TestFileStore_FindByPath(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutMedia(ctx, &Media{ID: "a", Path: "/p/a.jpg", Kind: KindImage}))
	require.NoError(t, s.PutMedia(ctx, &Media{ID: "b", Path: "/p/b.mp4", Kind: KindVideo}))

	got, err := s.FindByPath(ctx, "/p/b.mp4")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.ID)
	assert.True(t, got.IsVideo())
}

func TestFileStore_ListUnanalyzed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b", "d"} {
		require.NoError(t, s.PutMedia(ctx, &Media{ID: id, Path: "/p/" + id + ".jpg", CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, s.UpdateAnalysis(ctx, "a", "done", nil))

	all, err := s.ListUnanalyzed(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "d"}, ids(all))

	limited, err := s.ListUnanalyzed(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(limited))

	listed, err := s.ListMedia(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(listed))
}

func TestFileStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutMedia(ctx, &Media{ID: "a", Path: "/p/a.jpg", Tags: []string{"x"}}))

	got, err := s.GetMedia(ctx, "a")
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.Path = "/elsewhere"

	again, err := s.GetMedia(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again.Tags)
	assert.Equal(t, "/p/a.jpg", again.Path)
}

func TestOpenFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestOpenFileStore_NullEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"media":[null]}`), 0o644))

	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_FailedSaveKeepsRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := OpenFileStore(filepath.Join(dir, "media.json"))
	require.NoError(t, err)
	require.NoError(t, s.PutMedia(ctx, &Media{ID: "m1", Filename: "a.jpg", Path: "/p/a.jpg"}))

	// A regular file where the store directory should be makes every save fail.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	s.path = filepath.Join(blocker, "media.json")

	assert.Error(t, s.UpdateAnalysis(ctx, "m1", "A lake.", []string{"lake"}))
	assert.Error(t, s.RenameMedia(ctx, "m1", "/p/lake.jpg", "lake.jpg"))
	assert.Error(t, s.PutMedia(ctx, &Media{ID: "m2", Path: "/p/b.jpg"}))

	got, err := s.GetMedia(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Analyzed)
	assert.Empty(t, got.Description)
	assert.Equal(t, "/p/a.jpg", got.Path)
	assert.Equal(t, "a.jpg", got.Filename)

	missing, err := s.GetMedia(ctx, "m2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_NoDisk(t *testing.T) {
	s := NewMemoryStore()
	assert.Equal(t, "", s.Path())
	require.NoError(t, s.PutMedia(context.Background(), &Media{ID: "a", Path: "/a.jpg"}))
}

func ids(items []*Media) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.ID
	}
	return out
}
