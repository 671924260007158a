package extractor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/effects"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/timecode"
)

// FFmpeg wraps frame extraction with ffmpeg
type FFmpeg struct {
	ffmpegPath string
	fx         effects.Effects
	timeout    time.Duration
}

// NewFFmpeg creates a new FFmpeg instance. A zero timeout waits for ffmpeg
// as long as it takes.
func NewFFmpeg(ffmpegPath string, fx effects.Effects, timeout time.Duration) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{
		ffmpegPath: ffmpegPath,
		fx:         fx,
		timeout:    timeout,
	}
}

// FrameOptions holds options for extracting frames at one position
type FrameOptions struct {
	InputPath  string
	OutputPath string // a single file, or a %02d pattern when Frames > 1
	Seek       timecode.Timecode
	Frames     int
}

// Args builds the ffmpeg argument vector. Seeking is done on the output side
// so the frame is decoded exactly rather than snapped to a keyframe.
func (f *FFmpeg) Args(opts FrameOptions) []string {
	frames := opts.Frames
	if frames < 1 {
		frames = 1
	}

	return ffmpeg.
		Input(opts.InputPath).
		Output(opts.OutputPath, ffmpeg.KwArgs{
			"ss":      opts.Seek.String(),
			"vframes": strconv.Itoa(frames),
		}).
		OverWriteOutput().
		GetArgs()
}

// CommandLine returns the invocation as it would be typed in a shell
func (f *FFmpeg) CommandLine(opts FrameOptions) string {
	return effects.CommandLine(f.ffmpegPath, f.Args(opts))
}

// ExtractFrames runs ffmpeg and blocks until it exits
func (f *FFmpeg) ExtractFrames(ctx context.Context, opts FrameOptions) error {
	if opts.InputPath == "" || opts.OutputPath == "" {
		return errors.New("input and output paths are required")
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	if err := f.fx.Run(ctx, f.ffmpegPath, f.Args(opts)); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("frame extraction timed out after %s: %w", f.timeout, err)
		}
		return fmt.Errorf("failed to extract frames at %s: %w", opts.Seek, err)
	}
	return nil
}
