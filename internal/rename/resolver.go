// Package rename assigns collision-free filenames to analyzed media.
package rename

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultMaxAttempts is the number of candidate names tried: the bare base
// name plus suffixes _1 through _99.
const DefaultMaxAttempts = 100

// Reason describes why a rename did or did not happen.
type Reason int

const (
	// NotNeeded means the file already has the desired name.
	NotNeeded Reason = iota
	// Renamed means the file was moved to FinalPath.
	Renamed
	// CollisionExhausted means every candidate name was taken.
	CollisionExhausted
	// FilesystemError means the rename call itself failed.
	FilesystemError
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case NotNeeded:
		return "NotNeeded"
	case Renamed:
		return "Renamed"
	case CollisionExhausted:
		return "CollisionExhausted"
	case FilesystemError:
		return "FilesystemError"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Outcome is the result of a rename attempt. When Performed is false the
// file still lives at its original path and FinalName is its current name.
type Outcome struct {
	Performed bool
	FinalName string
	FinalPath string
	Reason    Reason
	Err       error
}

// Resolver renames files to a desired base name, numbering around collisions.
type Resolver struct {
	maxAttempts int
	rename      func(oldpath, newpath string) error
	lstat       func(name string) (fs.FileInfo, error)
}

// NewResolver creates a Resolver backed by the real filesystem.
func NewResolver() *Resolver {
	return &Resolver{
		maxAttempts: DefaultMaxAttempts,
		rename:      os.Rename,
		lstat:       os.Lstat,
	}
}

// Resolve renames currentPath so its base name becomes base, keeping the
// current extension and directory. base is used as given; callers pass it
// through SanitizeBaseName first. If the candidate is taken, _1, _2, ... are
// appended until a free name is found or the attempts run out. Failures are
// reported in the Outcome and logged, never returned as errors.
func (r *Resolver) Resolve(currentPath, base string) Outcome {
	currentPath = filepath.Clean(currentPath)
	dir := filepath.Dir(currentPath)
	ext := filepath.Ext(currentPath)
	unchanged := Outcome{
		FinalName: filepath.Base(currentPath),
		FinalPath: currentPath,
		Reason:    NotNeeded,
	}

	if base == "" {
		return unchanged
	}

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		name := base + ext
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d%s", base, attempt, ext)
		}
		candidate := filepath.Join(dir, name)

		if candidate == currentPath {
			return unchanged
		}
		if r.exists(candidate) && !r.caseOnlyRename(currentPath, candidate) {
			continue
		}

		if err := r.rename(currentPath, candidate); err != nil {
			log.Error().Err(err).
				Str("from", currentPath).
				Str("to", candidate).
				Msg("Failed to rename file")
			unchanged.Reason = FilesystemError
			unchanged.Err = err
			return unchanged
		}

		log.Info().
			Str("from", filepath.Base(currentPath)).
			Str("to", name).
			Int("attempt", attempt).
			Msg("File renamed")
		return Outcome{
			Performed: true,
			FinalName: name,
			FinalPath: candidate,
			Reason:    Renamed,
		}
	}

	log.Warn().
		Str("path", currentPath).
		Str("base", base).
		Int("attempts", r.maxAttempts).
		Msg("No free filename found, keeping original name")
	unchanged.Reason = CollisionExhausted
	return unchanged
}

// exists treats any stat error other than not-exist as taken.
func (r *Resolver) exists(path string) bool {
	_, err := r.lstat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// caseOnlyRename reports whether candidate differs from current only in case
// and names the same file, as on case-insensitive filesystems. Other names
// for the same file, such as hard links, count as collisions.
func (r *Resolver) caseOnlyRename(current, candidate string) bool {
	if !strings.EqualFold(current, candidate) {
		return false
	}
	return r.sameFile(current, candidate)
}

func (r *Resolver) sameFile(a, b string) bool {
	ai, err := r.lstat(a)
	if err != nil {
		return false
	}
	bi, err := r.lstat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
