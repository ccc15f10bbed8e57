package filehandler

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultFrameMaxDimension is the longest edge of a frame sent for analysis.
const DefaultFrameMaxDimension = 1024

const frameJPEGQuality = 90

// ScaleToFit downscales img so its longest edge is at most maxDimension,
// preserving aspect ratio. Smaller images are returned unchanged.
func ScaleToFit(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return img
	}

	newW, newH := maxDimension, maxDimension
	if w >= h {
		newH = h * maxDimension / w
	} else {
		newW = w * maxDimension / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	resized := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

// TempFrame is a frame written to disk for the duration of one analysis.
type TempFrame struct {
	Path string

	// Cleanup removes the file. It is safe to call more than once.
	Cleanup func()
}

// TempFramePath returns the per-media path of a temporary frame inside dir.
func TempFramePath(dir, mediaID string) string {
	return filepath.Join(dir, fmt.Sprintf("video_frame_%s.jpg", mediaID))
}

// WriteTempFrame encodes img as JPEG at TempFramePath(dir, mediaID). The
// caller MUST call Cleanup() when done with the frame.
func WriteTempFrame(dir, mediaID string, img image.Image) (*TempFrame, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	path := TempFramePath(dir, mediaID)
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove temporary frame")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp frame: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: frameJPEGQuality}); err != nil {
		f.Close()
		cleanup()
		return nil, fmt.Errorf("failed to encode temp frame: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to write temp frame: %w", err)
	}

	return &TempFrame{Path: path, Cleanup: cleanup}, nil
}
