package filehandler

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ScanOptions configures directory scanning behavior.
type ScanOptions struct {
	// MaxDepth limits recursion depth. 0 = unlimited, 1 = top-level only.
	MaxDepth int

	// Limit caps the number of media files returned. 0 = unlimited.
	Limit int
}

// MediaFile is a supported image or video found on disk.
type MediaFile struct {
	Path     string
	Kind     Kind
	MIMEType string
	Size     int64
	ModTime  time.Time

	// Metadata is filled by LoadMetadata for images that carry EXIF data.
	Metadata *ImageMetadata
}

// metadataWorkers bounds concurrent EXIF decoding in LoadMetadata.
const metadataWorkers = 4

// ScanDirectory scans a directory for all supported media files (images and videos).
// Recursive scanning is enabled by default (MaxDepth=0 means unlimited).
// Symlinks to files are followed; symlinks to directories are skipped to prevent infinite loops.
// Files are sorted alphabetically by path for consistent ordering.
func ScanDirectory(dirPath string, opts ScanOptions) ([]*MediaFile, error) {
	log.Info().
		Str("path", dirPath).
		Int("max_depth", opts.MaxDepth).
		Int("limit", opts.Limit).
		Msg("Scanning directory for media (images + videos)")

	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", dirPath)
		}
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	// Convert to absolute path for consistent depth calculation
	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	baseDepth := strings.Count(absPath, string(os.PathSeparator))

	var mediaFiles []*MediaFile
	var imageCount, videoCount int
	limitReached := false

	err = filepath.WalkDir(absPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error accessing path, skipping")
			return nil // Continue walking despite errors
		}

		if opts.MaxDepth > 0 {
			currentDepth := strings.Count(path, string(os.PathSeparator)) - baseDepth
			if d.IsDir() && currentDepth >= opts.MaxDepth {
				return fs.SkipDir
			}
		}

		if d.IsDir() {
			return nil
		}

		kind := KindOf(d.Name())
		if kind == KindUnknown {
			return nil
		}

		// Stat follows file symlinks; symlinks to directories are skipped
		fileInfo, err := os.Stat(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to stat file, skipping")
			return nil
		}
		if fileInfo.IsDir() {
			log.Debug().Str("path", path).Msg("Skipping symlink to directory")
			return nil
		}

		if opts.Limit > 0 && len(mediaFiles) >= opts.Limit {
			limitReached = true
			return fs.SkipAll
		}

		mf := &MediaFile{
			Path:    path,
			Kind:    kind,
			Size:    fileInfo.Size(),
			ModTime: fileInfo.ModTime(),
		}
		if kind == KindImage {
			mf.MIMEType = ImageMIMEType(path)
			imageCount++
		} else {
			mf.MIMEType = SupportedVideoExtensions[strings.ToLower(filepath.Ext(path))]
			videoCount++
		}
		mediaFiles = append(mediaFiles, mf)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(mediaFiles, func(i, j int) bool {
		return mediaFiles[i].Path < mediaFiles[j].Path
	})

	logEvent := log.Info().
		Int("total_media", len(mediaFiles)).
		Int("images", imageCount).
		Int("videos", videoCount).
		Str("directory", dirPath)

	if limitReached {
		logEvent.Bool("limit_reached", true)
	}

	logEvent.Msg("Directory scan complete")

	return mediaFiles, nil
}

// LoadMetadata decodes EXIF metadata for every image in files, a few at a
// time. Files without readable EXIF data are left without metadata.
func LoadMetadata(ctx context.Context, files []*MediaFile) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataWorkers)

	for _, mf := range files {
		if mf.Kind != KindImage {
			continue
		}
		mf := mf
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			meta, err := ExtractImageMetadata(mf.Path)
			if err != nil {
				log.Debug().Err(err).Str("path", mf.Path).Msg("No EXIF metadata, continuing without it")
				return nil
			}
			mf.Metadata = meta
			return nil
		})
	}
	return g.Wait()
}
