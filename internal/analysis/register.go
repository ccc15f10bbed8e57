package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fpang/ai-gallery/internal/filehandler"
	"github.com/fpang/ai-gallery/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Register records a media file in the store unless its path is already
// known. It returns the stored record and whether it was created by this call.
// EXIF date and camera are copied when the file carries them.
func Register(ctx context.Context, st store.MediaStore, f *filehandler.MediaFile) (*store.Media, bool, error) {
	existing, err := st.FindByPath(ctx, f.Path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up %s: %w", f.Path, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	m := &store.Media{
		ID:        uuid.NewString(),
		Filename:  filepath.Base(f.Path),
		Path:      f.Path,
		Kind:      string(f.Kind),
		SizeBytes: f.Size,
	}
	if md := f.Metadata; md != nil {
		if md.HasDate {
			m.DateTaken = md.DateTaken
		}
		m.CameraMake = md.CameraMake
		m.CameraModel = md.CameraModel
	}

	if err := st.PutMedia(ctx, m); err != nil {
		return nil, false, fmt.Errorf("failed to register %s: %w", f.Path, err)
	}
	log.Debug().Str("mediaId", m.ID).Str("path", m.Path).Str("kind", m.Kind).Msg("Media registered")
	return m, true, nil
}

// mediaFileAt describes a single file for registration.
func mediaFileAt(path string) (*filehandler.MediaFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, abs)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, abs)
	}
	kind := filehandler.KindOf(abs)
	if kind == filehandler.KindUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, abs)
	}
	f := &filehandler.MediaFile{
		Path:    abs,
		Kind:    kind,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if kind == filehandler.KindImage {
		f.MIMEType = filehandler.ImageMIMEType(abs)
	} else {
		f.MIMEType = filehandler.SupportedVideoExtensions[strings.ToLower(filepath.Ext(abs))]
	}
	return f, nil
}
