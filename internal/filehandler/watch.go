package filehandler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultSettle is how long a new file must stay quiet before it is reported.
// Copies from cameras and sync tools write in many chunks.
const DefaultSettle = 2 * time.Second

// WatchOptions configures Watch.
type WatchOptions struct {
	// Settle is the quiet period after the last write. Defaults to DefaultSettle.
	Settle time.Duration
}

// Watch reports supported media files that appear under dir, including new
// subdirectories, until ctx is cancelled. Each file is reported once its
// writes have settled. onFile runs on the watching goroutine.
func Watch(ctx context.Context, dir string, opts WatchOptions, onFile func(*MediaFile)) error {
	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, dir); err != nil {
		return fmt.Errorf("add watch dirs: %w", err)
	}
	log.Info().Str("path", dir).Dur("settle", settle).Msg("Watching directory for new media")

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchDirs(watcher, event.Name); err != nil {
						log.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
					}
					continue
				}
			}
			if isMediaEvent(event) {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watch error")
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, path)
				if mf := settledFile(path); mf != nil {
					onFile(mf)
				}
			}
		}
	}
}

// isMediaEvent reports whether the event may have produced a new media file.
func isMediaEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return KindOf(event.Name) != KindUnknown
}

// settledFile describes path if it is still a regular media file.
func settledFile(path string) *MediaFile {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	kind := KindOf(path)
	mf := &MediaFile{
		Path:    path,
		Kind:    kind,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if kind == KindImage {
		mf.MIMEType = ImageMIMEType(path)
	} else {
		mf.MIMEType = SupportedVideoExtensions[strings.ToLower(filepath.Ext(path))]
	}
	return mf
}

// addWatchDirs watches root and every directory below it, skipping hidden ones.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
