package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/ai-gallery/internal/analysis"
	"github.com/fpang/ai-gallery/internal/lmstudio"
	"github.com/fpang/ai-gallery/internal/styles"
	"github.com/rs/zerolog/log"
)

// ResolveDirectory checks that the path exists and is a directory, then
// returns its absolute path.
func ResolveDirectory(dirPath string) (string, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %s", dirPath)
		}
		return "", fmt.Errorf("failed to access directory %s: %w", dirPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", dirPath)
	}

	absPath, err := filepath.Abs(dirPath)
	if err == nil {
		dirPath = absPath
	}
	return dirPath, nil
}

// ValidateAndResolveDirectory is ResolveDirectory that exits fatally on failure.
func ValidateAndResolveDirectory(dirPath string) string {
	resolved, err := ResolveDirectory(dirPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dirPath).Msg("Invalid photos directory")
	}
	return resolved
}

// DescribeError turns an analysis error into a message for the terminal.
func DescribeError(err error) string {
	var reqErr *lmstudio.RequestError
	switch {
	case errors.As(err, &reqErr):
		switch reqErr.Kind {
		case lmstudio.ErrConnection:
			return "Cannot connect to LM Studio. Is it running?"
		case lmstudio.ErrTimeout:
			return "LM Studio did not answer in time. Large models can be slow; try raising the analyze timeout"
		case lmstudio.ErrBadStatus:
			return fmt.Sprintf("LM Studio returned status %d. Check that a vision model is loaded", reqErr.StatusCode)
		case lmstudio.ErrMalformedResponse:
			return "LM Studio sent a response without a message"
		}
	case errors.Is(err, analysis.ErrBackendUnavailable):
		return "LM Studio is not reachable. Start it and load a vision model"
	case errors.Is(err, analysis.ErrMediaNotFound):
		return "No media with that ID. Run 'gallery list' to see known media"
	case errors.Is(err, analysis.ErrSourceMissing):
		return "The media file is no longer on disk. Run 'gallery scan' to refresh"
	case errors.Is(err, analysis.ErrUnsupportedMedia):
		return "Unsupported file type"
	case errors.Is(err, styles.ErrEmptyCustomPrompt):
		return "The custom style needs prompt text (--prompt)"
	}
	return "Analysis failed"
}

// HandleAnalysisError logs the error with a readable message and exits.
func HandleAnalysisError(err error) {
	log.Fatal().Err(err).Msg(DescribeError(err))
}
