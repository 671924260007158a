// Package timecode models wall-clock positions in a video as a whole
// number of frames at a fixed frame rate.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultFrameRate is used when no frame rate is configured. The rate only
// matters for converting seconds to frames, so 24 is fine for most sources.
const DefaultFrameRate = 24

// MaxHours is the largest hour value New accepts.
const MaxHours = 99

var (
	ErrFrameRate  = errors.New("frame rate must be positive")
	ErrOutOfRange = errors.New("timecode field out of range")
)

// Timecode is a non-negative position counted in frames.
type Timecode struct {
	frames int64
	fps    int
}

// New builds a Timecode from its fields. Minutes and seconds must be below 60,
// the frame below fps and hours at most MaxHours.
func New(hours, minutes, seconds, frame, fps int) (Timecode, error) {
	if fps <= 0 {
		return Timecode{}, ErrFrameRate
	}
	if hours < 0 || hours > MaxHours {
		return Timecode{}, fmt.Errorf("%w: hours %d", ErrOutOfRange, hours)
	}
	if minutes < 0 || minutes > 59 {
		return Timecode{}, fmt.Errorf("%w: minutes %d", ErrOutOfRange, minutes)
	}
	if seconds < 0 || seconds > 59 {
		return Timecode{}, fmt.Errorf("%w: seconds %d", ErrOutOfRange, seconds)
	}
	if frame < 0 || frame >= fps {
		return Timecode{}, fmt.Errorf("%w: frame %d at %d fps", ErrOutOfRange, frame, fps)
	}

	total := ((int64(hours)*60+int64(minutes))*60+int64(seconds))*int64(fps) + int64(frame)
	return Timecode{frames: total, fps: fps}, nil
}

// FromFrames returns the Timecode n frames from the start. Negative counts
// clamp to zero and a non-positive fps falls back to DefaultFrameRate.
func FromFrames(n int64, fps int) Timecode {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	if n < 0 {
		n = 0
	}
	return Timecode{frames: n, fps: fps}
}

func (t Timecode) rate() int64 {
	if t.fps <= 0 {
		return DefaultFrameRate
	}
	return int64(t.fps)
}

// FrameRate returns the frames per second the value was built with.
func (t Timecode) FrameRate() int { return int(t.rate()) }

// TotalFrames returns the position in frames.
func (t Timecode) TotalFrames() int64 { return t.frames }

func (t Timecode) Hours() int { return int(t.frames / t.rate() / 3600) }
func (t Timecode) Minutes() int { return int(t.frames / t.rate() / 60 % 60) }
func (t Timecode) Seconds() int { return int(t.frames / t.rate() % 60) }
func (t Timecode) Frame() int { return int(t.frames % t.rate()) }

// IsZero reports whether t is the start of the file.
func (t Timecode) IsZero() bool { return t.frames == 0 }

// TotalSeconds returns the position as fractional seconds.
func (t Timecode) TotalSeconds() float64 {
	return float64(t.frames) / float64(t.rate())
}

// Add moves t by n frames. The result never goes below zero.
func (t Timecode) Add(n int64) Timecode {
	return FromFrames(t.frames+n, int(t.rate()))
}

// maxShift bounds a single AddSeconds move so the frame sum cannot overflow.
const maxShift = 1 << 53

// AddSeconds moves t by a signed number of seconds, rounded to the nearest
// frame. The result never goes below zero. Moves beyond maxShift frames
// saturate and NaN leaves t unchanged.
func (t Timecode) AddSeconds(seconds float64) Timecode {
	n := math.Round(seconds * float64(t.rate()))
	switch {
	case math.IsNaN(n):
		return t
	case n > maxShift:
		n = maxShift
	case n < -maxShift:
		n = -maxShift
	}
	return t.Add(int64(n))
}

// String renders t as H:MM:SS.F where F is the decimal fraction of the
// current second, e.g. 0:00:58.0 or 1:02:03.5. ffmpeg accepts this form for -ss.
func (t Timecode) String() string {
	return fmt.Sprintf("%d:%02d:%02d.%s", t.Hours(), t.Minutes(), t.Seconds(), t.fraction())
}

func (t Timecode) fraction() string {
	f := t.Frame()
	if f == 0 {
		return "0"
	}
	s := strconv.FormatFloat(float64(f)/float64(t.rate()), 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimPrefix(s, "0.")
}
