package filehandler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrExtractorUnavailable is returned when no frame extraction tool is installed.
var ErrExtractorUnavailable = errors.New("frame extractor unavailable")

// FrameExtractor produces a still image from a video at a given offset.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, videoPath string, offset time.Duration) (image.Image, error)
}

// FFmpegExtractor extracts frames with the ffmpeg binary found on PATH.
type FFmpegExtractor struct {
	lookPath func(string) (string, error)
}

// NewFFmpegExtractor creates an extractor that resolves ffmpeg lazily on each call.
func NewFFmpegExtractor() *FFmpegExtractor {
	return &FFmpegExtractor{lookPath: exec.LookPath}
}

// ExtractFrame grabs a single frame at offset. If that fails (for example the
// video is shorter than offset) it retries at 0s. ErrExtractorUnavailable is
// returned when ffmpeg is not installed.
func (e *FFmpegExtractor) ExtractFrame(ctx context.Context, videoPath string, offset time.Duration) (image.Image, error) {
	ffmpegPath, err := e.lookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found: %v", ErrExtractorUnavailable, err)
	}

	tmpFile, err := os.CreateTemp("", "vframe-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	// ffmpeg -i input.mp4 -ss 1 -vframes 1 -f image2 -y output.png
	seek := strconv.FormatFloat(offset.Seconds(), 'f', -1, 64)
	output, err := exec.CommandContext(ctx, ffmpegPath,
		"-i", videoPath,
		"-ss", seek,
		"-vframes", "1",
		"-f", "image2",
		"-y", tmpPath,
	).CombinedOutput()
	if err != nil || emptyFile(tmpPath) {
		log.Debug().Err(err).Str("path", videoPath).Str("seek", seek).Msg("Frame extraction failed, retrying at 0s")
		output2, err2 := exec.CommandContext(ctx, ffmpegPath,
			"-i", videoPath,
			"-vframes", "1",
			"-f", "image2",
			"-y", tmpPath,
		).CombinedOutput()
		if err2 != nil {
			return nil, fmt.Errorf("ffmpeg frame extraction failed: %w: %s / %s", err2, truncateOutput(output), truncateOutput(output2))
		}
	}

	frameFile, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted frame: %w", err)
	}
	defer frameFile.Close()

	img, err := png.Decode(frameFile)
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted frame: %w", err)
	}

	log.Debug().
		Str("path", videoPath).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Video frame extracted")
	return img, nil
}

// ffmpeg exits 0 without writing a frame when seeking past the end.
func emptyFile(path string) bool {
	info, err := os.Stat(path)
	return err != nil || info.Size() == 0
}

func truncateOutput(b []byte) string {
	const limit = 300
	if len(b) <= limit {
		return string(b)
	}
	return string(b[len(b)-limit:])
}
