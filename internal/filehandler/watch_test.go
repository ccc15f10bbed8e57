package filehandler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMediaEvent(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"new photo", fsnotify.Event{Name: "/p/IMG_1.jpg", Op: fsnotify.Create}, true},
		{"photo still writing", fsnotify.Event{Name: "/p/IMG_1.JPG", Op: fsnotify.Write}, true},
		{"new video", fsnotify.Event{Name: "/p/clip.mov", Op: fsnotify.Create}, true},
		{"text file", fsnotify.Event{Name: "/p/notes.txt", Op: fsnotify.Create}, false},
		{"hidden temp file", fsnotify.Event{Name: "/p/.IMG_1.jpg", Op: fsnotify.Create}, false},
		{"removed photo", fsnotify.Event{Name: "/p/IMG_1.jpg", Op: fsnotify.Remove}, false},
		{"chmod", fsnotify.Event{Name: "/p/IMG_1.jpg", Op: fsnotify.Chmod}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isMediaEvent(tt.event))
		})
	}
}

func TestWatch_ReportsNewMedia(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, WatchOptions{Settle: 100 * time.Millisecond}, func(mf *MediaFile) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, filepath.Base(mf.Path))
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "IMG_1.jpg"), []byte("jpeg"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"IMG_1.jpg"}, seen)
}
