// Package batch drives extractions over a whole table or a single request.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/locator"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/logging"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/metrics"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/output"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/table"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/thumbnailer"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/tracing"
	"github.com/therealutkarshpriyadarshi/thumbnailer/pkg/models"
)

// Run modes
const (
	ModeTable  = "table"
	ModeSingle = "single"
)

// Row skip reasons
const (
	SkipDone        = "done"
	SkipNoTimecodes = "no_timecodes"
	SkipInvalidID   = "invalid_id"
	SkipNotFound    = "not_found"
)

// ErrInvalidRequest is returned by RunSingle for a request it cannot act on.
var ErrInvalidRequest = errors.New("must specify a csv file, or a film id and timecode")

// ParseFilmID reads a positive film id. Spreadsheet exports that write
// whole numbers as 42.0 are accepted.
func ParseFilmID(s string) (int, error) {
	s = strings.TrimSpace(s)
	id, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
			return 0, fmt.Errorf("id %s is not valid", s)
		}
		id = int(f)
	}
	if id <= 0 {
		return 0, fmt.Errorf("id %s is not valid", s)
	}
	return id, nil
}

// Locator resolves a film id to its source file
type Locator interface {
	Locate(ctx context.Context, filmID int) (string, error)
}

// Extractor performs one extraction
type Extractor interface {
	Extract(ctx context.Context, req thumbnailer.Request) (*models.Thumbnail, error)
}

// Options configures a Driver
type Options struct {
	Offset         float64 // signed seconds applied to every timecode
	ImageAsDefault bool    // copy image 1 to the film's default image
}

// SingleRequest is a one-off extraction from the command line
type SingleRequest struct {
	FilmID    int
	Timecode  string
	TitleCard bool
}

// Summary counts what a run did
type Summary struct {
	Mode       string
	Rows       int
	Extracted  int
	Failed     int
	Skipped    map[string]int
	Thumbnails []*models.Thumbnail
	Duration   time.Duration
}

func newSummary(mode string) *Summary {
	return &Summary{Mode: mode, Skipped: make(map[string]int)}
}

// SkippedTotal returns the number of skipped rows over all reasons
func (s *Summary) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Driver walks requests through locate and extract
type Driver struct {
	opts      Options
	locator   Locator
	extractor Extractor
	logger    *logging.Logger
}

// NewDriver creates a new batch driver
func NewDriver(opts Options, loc Locator, ext Extractor, logger *logging.Logger) *Driver {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Driver{
		opts:      opts,
		locator:   loc,
		extractor: ext,
		logger:    logger.WithComponent("batch"),
	}
}

// RunTable processes every row of a delimited table in file order. Per-row
// problems are logged and counted; only an unreadable table or a cancelled
// context returns an error.
func (d *Driver) RunTable(ctx context.Context, r io.Reader, delimiter rune) (*Summary, error) {
	start := time.Now()
	summary := newSummary(ModeTable)
	defer d.finish(summary, start)

	rows, err := table.NewReader(r, delimiter)
	if err != nil {
		return summary, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		if err != nil {
			return summary, err
		}

		summary.Rows++
		metrics.RecordRow(ModeTable)

		if err := d.processRow(ctx, row, summary); err != nil {
			return summary, err
		}
	}
}

func (d *Driver) processRow(ctx context.Context, row *table.Row, summary *Summary) error {
	logger := d.logger.WithRow(row.Line)

	if row.IsDone() {
		d.skip(logger, summary, SkipDone, "row already marked done")
		return nil
	}
	if !row.HasTimecodes() {
		d.skip(logger, summary, SkipNoTimecodes, "row has no timecodes")
		return nil
	}

	filmID, err := ParseFilmID(row.FilmID)
	if err != nil {
		d.skip(logger, summary, SkipInvalidID, fmt.Sprintf("id %s is not valid!", row.FilmID))
		return nil
	}
	logger = logger.WithFilmID(filmID)

	span, ctx := tracing.StartFilmSpan(ctx, "batch.row", filmID)
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "line", row.Line)

	status := "unpublished"
	if row.IsPublished() {
		status = "published"
	}

	source, err := d.locator.Locate(ctx, filmID)
	if err != nil {
		return d.locateFailed(ctx, logger, summary, err, fmt.Sprintf("could not find movie file for %s film id %d", status, filmID))
	}

	slots := []struct {
		timecode  string
		kind      output.Kind
		asDefault bool
	}{
		{row.TitleCard, output.KindTitleCard, false},
		{row.Image1, output.KindImage, d.opts.ImageAsDefault},
		{row.Image2, output.KindImage, false},
		{row.Image3, output.KindImage, false},
	}
	for _, slot := range slots {
		err := d.extract(ctx, logger, summary, thumbnailer.Request{
			FilmID:    filmID,
			Source:    source,
			Timecode:  slot.timecode,
			Offset:    d.opts.Offset,
			Kind:      slot.kind,
			AsDefault: slot.asDefault,
		})
		if err != nil {
			tracing.LogError(span, err)
			return err
		}
	}
	return nil
}

// RunSingle extracts one timecode for one film. The default image is never
// written in this mode.
func (d *Driver) RunSingle(ctx context.Context, req SingleRequest) (*Summary, error) {
	start := time.Now()
	summary := newSummary(ModeSingle)
	defer d.finish(summary, start)

	if req.FilmID <= 0 || strings.TrimSpace(req.Timecode) == "" {
		return summary, ErrInvalidRequest
	}

	summary.Rows++
	metrics.RecordRow(ModeSingle)
	logger := d.logger.WithFilmID(req.FilmID)

	span, ctx := tracing.StartFilmSpan(ctx, "batch.single", req.FilmID)
	defer tracing.FinishSpan(span)

	source, err := d.locator.Locate(ctx, req.FilmID)
	if err != nil {
		return summary, d.locateFailed(ctx, logger, summary, err, fmt.Sprintf("could not find movie file for film id %d", req.FilmID))
	}

	kind := output.KindImage
	if req.TitleCard {
		kind = output.KindTitleCard
	}

	return summary, d.extract(ctx, logger, summary, thumbnailer.Request{
		FilmID:   req.FilmID,
		Source:   source,
		Timecode: req.Timecode,
		Offset:   d.opts.Offset,
		Kind:     kind,
	})
}

// extract runs one slot. Only cancellation is returned; every other outcome
// lands in the summary.
func (d *Driver) extract(ctx context.Context, logger *logging.Logger, summary *Summary, req thumbnailer.Request) error {
	thumb, err := d.extractor.Extract(ctx, req)
	switch {
	case err == nil:
		summary.Extracted++
		summary.Thumbnails = append(summary.Thumbnails, thumb)
		return nil
	case errors.Is(err, thumbnailer.ErrNoTimecode):
		logger.Debugf("no usable %s timecode %q", req.Kind, req.Timecode)
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		summary.Failed++
		metrics.RecordError("batch", "extract")
		logger.WithError(err).WithField("kind", req.Kind.String()).Error("thumbnail extraction failed")
		return nil
	}
}

func (d *Driver) locateFailed(ctx context.Context, logger *logging.Logger, summary *Summary, err error, msg string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, locator.ErrNotFound) {
		d.skip(logger, summary, SkipNotFound, msg)
		return nil
	}
	summary.Failed++
	metrics.RecordError("batch", "locate")
	logger.WithError(err).Error(msg)
	return nil
}

func (d *Driver) skip(logger *logging.Logger, summary *Summary, reason, msg string) {
	summary.Skipped[reason]++
	metrics.RecordRowSkipped(reason)
	logger.LogSkip(reason, msg)
}

func (d *Driver) finish(summary *Summary, start time.Time) {
	summary.Duration = time.Since(start)
	d.logger.LogRunSummary(summary.Mode, summary.Rows, summary.Extracted, summary.Failed, summary.Skipped, summary.Duration)
}
