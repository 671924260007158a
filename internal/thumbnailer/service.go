// Package thumbnailer turns one (film, timecode) request into thumbnail files.
package thumbnailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/effects"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/extractor"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/logging"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/metrics"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/output"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/timecode"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/tracing"
	"github.com/therealutkarshpriyadarshi/thumbnailer/pkg/models"
)

var (
	// ErrNoTimecode means the timecode slot was blank or unparsable.
	ErrNoTimecode = errors.New("no usable timecode")
	// ErrSourceMissing means the resolved source file is not on disk.
	ErrSourceMissing = errors.New("source file missing")
	// ErrOutputMissing means ffmpeg ran but the first frame was not written.
	ErrOutputMissing = errors.New("output file missing after extraction")
)

// Sink receives every thumbnail that was actually written
type Sink interface {
	Name() string
	Record(ctx context.Context, thumb *models.Thumbnail) error
}

// Options configures a Service
type Options struct {
	FrameRate    int
	VerifyOutput bool
	RunID        string
}

// Request is one extraction
type Request struct {
	FilmID    int
	Source    string
	Timecode  string
	Offset    float64 // signed seconds added to the parsed timecode
	Kind      output.Kind
	AsDefault bool
}

// Service extracts thumbnails
type Service struct {
	opts    Options
	builder *output.Builder
	ffmpeg  *extractor.FFmpeg
	fx      effects.Effects
	sinks   []Sink
	logger  *logging.Logger
}

// NewService creates a new thumbnail service
func NewService(opts Options, builder *output.Builder, ff *extractor.FFmpeg, fx effects.Effects, logger *logging.Logger, sinks ...Sink) *Service {
	if opts.FrameRate <= 0 {
		opts.FrameRate = timecode.DefaultFrameRate
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		opts:    opts,
		builder: builder,
		ffmpeg:  ff,
		fx:      fx,
		sinks:   sinks,
		logger:  logger.WithComponent("thumbnailer"),
	}
}

// Extract parses the request timecode, applies the offset and writes the
// thumbnail. A blank or unparsable timecode yields ErrNoTimecode and nothing
// else happens.
func (s *Service) Extract(ctx context.Context, req Request) (*models.Thumbnail, error) {
	kind := req.Kind.String()

	requested, ok := timecode.Parse(req.Timecode, s.opts.FrameRate)
	if !ok {
		metrics.RecordExtraction(kind, "no_timecode", 0)
		return nil, ErrNoTimecode
	}

	span, ctx := tracing.StartFilmSpan(ctx, "thumbnailer.extract", req.FilmID)
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "kind", kind)

	if req.Source == "" {
		return nil, s.fail(span, kind, "source_missing", fmt.Errorf("%w: no source for film %d", ErrSourceMissing, req.FilmID))
	}
	if _, err := os.Stat(req.Source); err != nil {
		return nil, s.fail(span, kind, "source_missing", fmt.Errorf("%w: %s", ErrSourceMissing, req.Source))
	}

	seek := requested.AddSeconds(req.Offset)
	tracing.SetTag(span, "seek", seek.String())

	path, err := s.builder.Path(req.FilmID, req.Kind, seek)
	if err != nil {
		return nil, s.fail(span, kind, "output_dir", err)
	}

	thumb := &models.Thumbnail{
		ID:          uuid.New().String(),
		RunID:       s.opts.RunID,
		FilmID:      req.FilmID,
		Kind:        kind,
		Requested:   req.Timecode,
		Seek:        seek.String(),
		SeekSeconds: seek.TotalSeconds(),
		Source:      req.Source,
		Path:        path,
		Files:       output.Frames(path, s.builder.Frames()),
		Frames:      s.builder.Frames(),
		DryRun:      s.fx.DryRun(),
		CreatedAt:   time.Now(),
	}

	logger := s.logger.WithFilmID(req.FilmID)
	if !thumb.DryRun {
		logger.Infof("Extracting thumbnail from %s...", req.Source)
	}

	start := time.Now()
	err = s.ffmpeg.ExtractFrames(ctx, extractor.FrameOptions{
		InputPath:  req.Source,
		OutputPath: path,
		Seek:       seek,
		Frames:     s.builder.Frames(),
	})
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.fail(span, kind, "canceled", err)
		}
		// ffmpeg's exit status is advisory; a failed run shows up as missing output
		logger.WithError(err).Warn("ffmpeg reported an error")
		metrics.RecordError("extractor", "ffmpeg_exit")
	}

	if s.opts.VerifyOutput && !thumb.DryRun {
		first := output.FirstFrame(path, thumb.Frames)
		if _, statErr := os.Stat(first); statErr != nil {
			return nil, s.fail(span, kind, "output_missing", fmt.Errorf("%w: %s", ErrOutputMissing, first))
		}
	}

	if req.AsDefault {
		defaultPath, err := s.builder.DefaultPath(req.FilmID)
		if err != nil {
			return nil, s.fail(span, kind, "output_dir", err)
		}
		if err := s.fx.Copy(output.FirstFrame(path, thumb.Frames), defaultPath); err != nil {
			logger.WithError(err).Warn("failed to copy default image")
			metrics.RecordError("thumbnailer", "default_copy")
		} else {
			thumb.DefaultPath = defaultPath
		}
	}

	status := "extracted"
	if thumb.DryRun {
		status = "dry_run"
	}
	metrics.RecordExtraction(kind, status, elapsed.Seconds())
	logger.LogExtraction(kind, thumb.Seek, path, thumb.DryRun, elapsed)

	if !thumb.DryRun {
		s.record(ctx, logger, thumb)
	}

	return thumb, nil
}

func (s *Service) record(ctx context.Context, logger *logging.Logger, thumb *models.Thumbnail) {
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, thumb); err != nil {
			logger.WithError(err).WithField("sink", sink.Name()).Warn("failed to record thumbnail")
			metrics.RecordError("sink", sink.Name())
		}
	}
}

func (s *Service) fail(span opentracing.Span, kind, status string, err error) error {
	metrics.RecordExtraction(kind, status, 0)
	tracing.LogError(span, err)
	return err
}
