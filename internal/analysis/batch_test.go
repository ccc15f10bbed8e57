package analysis

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fpang/ai-gallery/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed registers files directly with staggered creation times.
func seed(t *testing.T, f *fixture, names ...string) []*store.Media {
	t.Helper()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var out []*store.Media
	for i, name := range names {
		m := &store.Media{
			ID:        "m" + name,
			Filename:  name,
			Path:      filepath.Join(f.dir, name),
			Kind:      store.KindImage,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.store.PutMedia(context.Background(), m))
		out = append(out, m)
	}
	return out
}

func TestAnalyzeBatch_Summary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	seed(t, f, "a.jpg", "b.jpg", "c.jpg")
	f.touch(t, "a.jpg")
	f.touch(t, "c.jpg")
	f.client.responses = []string{
		`{"description":"first","tags":["x"],"suggested_filename":"first_photo"}`,
		"no json here at all",
	}

	var seen []int
	summary, err := f.orch.AnalyzeBatch(ctx, BatchOptions{
		OnItem: func(n, total int, out *Outcome) {
			assert.Equal(t, 3, total)
			seen = append(seen, n)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Analyzed)
	assert.Equal(t, 1, summary.Renamed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "mb.jpg", summary.Failures[0].MediaID)
	assert.Contains(t, summary.Failures[0].Error, "not found on disk")
	assert.Equal(t, []int{1, 2, 3}, seen)

	assert.Equal(t, 1, f.client.healthCalls, "health is checked once per batch")
	assert.Equal(t, 2, f.client.analyzeCalls)

	remaining, err := f.store.ListUnanalyzed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "mb.jpg", remaining[0].ID)
}

func TestAnalyzeBatch_Limit(t *testing.T) {
	f := newFixture(t, false)
	seed(t, f, "1.jpg", "2.jpg", "3.jpg")
	f.touch(t, "1.jpg")
	f.touch(t, "2.jpg")
	f.touch(t, "3.jpg")

	summary, err := f.orch.AnalyzeBatch(context.Background(), BatchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Analyzed)
}

func TestAnalyzeBatch_BackendUnavailable(t *testing.T) {
	f := newFixture(t, true)
	f.client.healthy = false
	seed(t, f, "a.jpg")
	f.touch(t, "a.jpg")

	summary, err := f.orch.AnalyzeBatch(context.Background(), BatchOptions{})
	require.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "Is it running?")
	assert.Zero(t, f.client.analyzeCalls)
}

func TestAnalyzeBatch_Cancelled(t *testing.T) {
	f := newFixture(t, true)
	seed(t, f, "a.jpg", "b.jpg")
	f.touch(t, "a.jpg")
	f.touch(t, "b.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	summary, err := f.orch.AnalyzeBatch(ctx, BatchOptions{
		OnItem: func(n, total int, out *Outcome) { cancel() },
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Analyzed)
	assert.Equal(t, 1, f.client.analyzeCalls)
}

func TestAnalyzeBatch_Empty(t *testing.T) {
	f := newFixture(t, true)

	summary, err := f.orch.AnalyzeBatch(context.Background(), BatchOptions{})
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.Failures)
}
