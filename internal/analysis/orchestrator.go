// Package analysis drives one media item through the gallery's pipeline:
// resolve the image to send (a video is reduced to one frame), ask the vision
// model about it, recover a structured Result from the answer, persist it and
// optionally rename the file to the model's suggestion.
//
// Once the model has answered, a Result always exists. Unparseable answers are
// salvaged as a plain description. A failed rename never fails the analysis.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fpang/ai-gallery/internal/filehandler"
	"github.com/fpang/ai-gallery/internal/jsonutil"
	"github.com/fpang/ai-gallery/internal/lmstudio"
	"github.com/fpang/ai-gallery/internal/metrics"
	"github.com/fpang/ai-gallery/internal/rename"
	"github.com/fpang/ai-gallery/internal/store"
	"github.com/fpang/ai-gallery/internal/styles"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSourceMissing is returned when the media file is not on disk.
	ErrSourceMissing = errors.New("media file not found on disk")

	// ErrMediaNotFound is returned for a media ID the store does not hold.
	ErrMediaNotFound = errors.New("media not found")

	// ErrUnsupportedMedia is returned for paths that are neither a supported image nor video.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrBackendUnavailable is returned when the vision backend fails its health check.
	ErrBackendUnavailable = errors.New("vision backend unavailable")
)

// VideoFrameOffset is where the representative frame of a video is taken.
const VideoFrameOffset = time.Second

// Analyzer is the vision backend. *lmstudio.Client satisfies it.
type Analyzer interface {
	CheckHealth(ctx context.Context) (bool, string)
	Analyze(ctx context.Context, image []byte, mimeType string, style styles.Style) (string, error)
}

var _ Analyzer = (*lmstudio.Client)(nil)

// Options configures an Orchestrator. Zero values select the defaults.
type Options struct {
	// TempDir receives temporary video frames. Defaults to os.TempDir().
	TempDir string

	// AutoRename renames files to the model's suggested filename.
	AutoRename bool

	// Extractor grabs video frames. Defaults to ffmpeg.
	Extractor filehandler.FrameExtractor

	// Resolver performs renames. Defaults to the real filesystem.
	Resolver *rename.Resolver
}

// Orchestrator runs analyses against one store and one vision backend.
type Orchestrator struct {
	store      store.MediaStore
	client     Analyzer
	extractor  filehandler.FrameExtractor
	resolver   *rename.Resolver
	tempDir    string
	autoRename bool
}

// New creates an Orchestrator.
func New(st store.MediaStore, client Analyzer, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:      st,
		client:     client,
		extractor:  opts.Extractor,
		resolver:   opts.Resolver,
		tempDir:    opts.TempDir,
		autoRename: opts.AutoRename,
	}
	if o.extractor == nil {
		o.extractor = filehandler.NewFFmpegExtractor()
	}
	if o.resolver == nil {
		o.resolver = rename.NewResolver()
	}
	if o.tempDir == "" {
		o.tempDir = os.TempDir()
	}
	return o
}

// Request identifies the media to analyze, by ID or by path. A path that is
// not yet in the store is registered first. A nil Style means the default.
type Request struct {
	MediaID string
	Path    string
	Style   styles.Style

	// NoRename suppresses the rename step for this request only.
	NoRename bool
}

// Outcome reports what happened to one analysis.
type Outcome struct {
	Success  bool
	MediaID  string
	Path     string
	Stage    Stage
	Result   *Result
	Tier     jsonutil.Tier
	Salvaged bool
	Rename   *rename.Outcome
	Error    string
	Duration time.Duration
}

// Analyze runs one media item through the pipeline. The returned Outcome is
// never nil; on error it records the stage that failed. Nothing is persisted
// unless the model answered.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	style := req.Style
	if style == nil {
		style = styles.Default()
	}

	out := &Outcome{MediaID: req.MediaID, Path: req.Path, Stage: StageIdle}
	rec := metrics.New(metrics.Namespace).Dimension("Style", style.Key())
	defer func() {
		out.Duration = time.Since(start)
		rec.Duration("AnalysisMs", out.Duration)
		if out.Success {
			rec.Count("AnalysisSuccess")
		} else {
			rec.Count("AnalysisFailure")
		}
		rec.Property("mediaId", out.MediaID)
		rec.Flush()
	}()

	media, err := o.resolveMedia(ctx, req)
	if err != nil {
		return o.fail(out, err)
	}
	out.MediaID = media.ID
	out.Path = media.Path

	if _, err := os.Stat(media.Path); err != nil {
		return o.fail(out, fmt.Errorf("%w: %s", ErrSourceMissing, media.Path))
	}

	data, mimeType, cleanup, err := o.loadSource(ctx, media)
	if err != nil {
		return o.fail(out, err)
	}
	defer cleanup()
	o.advance(out, StageSourceResolved)

	log.Info().
		Str("mediaId", media.ID).
		Str("file", media.Filename).
		Str("style", style.Key()).
		Int("bytes", len(data)).
		Msg("Analyzing media")

	o.advance(out, StageRequested)
	raw, err := o.client.Analyze(ctx, data, mimeType, style)
	if err != nil {
		return o.fail(out, fmt.Errorf("analysis of %s failed: %w", media.Filename, err))
	}

	result, tier := ResultFromText(raw)
	result.Tags = CleanTags(result.Tags)
	out.Result = &result
	out.Tier = tier
	out.Salvaged = tier == jsonutil.TierNone
	if out.Salvaged {
		rec.Count("SalvagedResponse")
		log.Warn().
			Str("mediaId", media.ID).
			Int("responseLength", len(raw)).
			Msg("No JSON object in model response, keeping it as the description")
	} else {
		log.Debug().Str("mediaId", media.ID).Str("tier", tier.String()).Msg("Model response parsed")
	}
	o.advance(out, StageExtracted)

	if err := o.store.UpdateAnalysis(ctx, media.ID, result.Description, result.Tags); err != nil {
		return o.fail(out, fmt.Errorf("failed to save analysis: %w", err))
	}
	o.advance(out, StagePersisted)

	base := rename.SanitizeBaseName(stripMediaExt(result.SuggestedFilename))
	if base != "" && o.autoRename && !req.NoRename {
		rn := o.resolver.Resolve(media.Path, base)
		out.Rename = &rn
		o.advance(out, StageRenameAttempted)
		o.recordRename(ctx, media, rn, rec)
	}

	out.Success = true
	o.advance(out, StageDone)
	log.Info().
		Str("mediaId", out.MediaID).
		Int("tags", len(result.Tags)).
		Bool("salvaged", out.Salvaged).
		Dur("duration", time.Since(start)).
		Msg("Analysis complete")
	return out, nil
}

// resolveMedia finds the stored record for the request, registering a new
// path on first sight.
func (o *Orchestrator) resolveMedia(ctx context.Context, req Request) (*store.Media, error) {
	if req.MediaID != "" {
		m, err := o.store.GetMedia(ctx, req.MediaID)
		if err != nil {
			return nil, fmt.Errorf("failed to load media %s: %w", req.MediaID, err)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, req.MediaID)
		}
		return m, nil
	}
	if req.Path == "" {
		return nil, errors.New("request has neither a media ID nor a path")
	}

	f, err := mediaFileAt(req.Path)
	if err != nil {
		return nil, err
	}
	m, _, err := Register(ctx, o.store, f)
	return m, err
}

// loadSource returns the bytes to send for the media. For videos it writes a
// temporary frame; cleanup removes it and is always safe to call.
func (o *Orchestrator) loadSource(ctx context.Context, m *store.Media) ([]byte, string, func(), error) {
	noop := func() {}

	kind := filehandler.Kind(m.Kind)
	if kind == filehandler.KindUnknown {
		kind = filehandler.KindOf(m.Path)
	}

	if kind != filehandler.KindVideo {
		data, err := os.ReadFile(m.Path)
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to read %s: %w", m.Path, err)
		}
		return data, filehandler.ImageMIMEType(m.Path), noop, nil
	}

	frame := o.videoFrame(ctx, m)
	frame = filehandler.ScaleToFit(frame, filehandler.DefaultFrameMaxDimension)

	tf, err := filehandler.WriteTempFrame(o.tempDir, m.ID, frame)
	if err != nil {
		return nil, "", noop, err
	}
	data, err := os.ReadFile(tf.Path)
	if err != nil {
		tf.Cleanup()
		return nil, "", noop, fmt.Errorf("failed to read temp frame: %w", err)
	}
	return data, "image/jpeg", tf.Cleanup, nil
}

// videoFrame extracts the representative frame, falling back to the
// generated placeholder.
func (o *Orchestrator) videoFrame(ctx context.Context, m *store.Media) image.Image {
	frame, err := o.extractor.ExtractFrame(ctx, m.Path, VideoFrameOffset)
	if err == nil && frame != nil {
		return frame
	}
	evt := log.Warn().Str("mediaId", m.ID).Str("path", m.Path)
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("Could not extract video frame, using placeholder")
	return filehandler.Placeholder(filehandler.PlaceholderWidth)
}

// recordRename stores the new location of a renamed file. The resolver has
// already logged the outcome. Store failures are logged only: the file has
// already moved.
func (o *Orchestrator) recordRename(ctx context.Context, m *store.Media, rn rename.Outcome, rec *metrics.Recorder) {
	if rn.Reason != rename.Renamed {
		return
	}
	rec.Count("FileRenamed")
	if err := o.store.RenameMedia(ctx, m.ID, rn.FinalPath, rn.FinalName); err != nil {
		log.Error().Err(err).Str("mediaId", m.ID).Str("path", rn.FinalPath).Msg("Failed to record rename in store")
	}
}

func (o *Orchestrator) advance(out *Outcome, stage Stage) {
	out.Stage = stage
	log.Debug().Str("mediaId", out.MediaID).Str("stage", stage.String()).Msg("Analysis stage")
}

func (o *Orchestrator) fail(out *Outcome, err error) (*Outcome, error) {
	out.Stage = StageFailed
	out.Error = err.Error()
	log.Error().Err(err).Str("mediaId", out.MediaID).Str("path", out.Path).Msg("Analysis failed")
	return out, err
}

// stripMediaExt drops a trailing media extension the model may have added to
// its suggestion. The renamed file always keeps its own extension.
func stripMediaExt(name string) string {
	name = strings.TrimSpace(name)
	if ext := filepath.Ext(name); ext != "" && filehandler.IsSupported(ext) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}
