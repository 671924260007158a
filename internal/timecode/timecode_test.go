package timecode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, h, m, s, f int) Timecode {
	t.Helper()
	tc, err := New(h, m, s, f, DefaultFrameRate)
	require.NoError(t, err)
	return tc
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		h, m, s, f int
		fps        int
		wantFrames int64
		wantErr    bool
	}{
		{"zero", 0, 0, 0, 0, 24, 0, false},
		{"one minute", 0, 1, 0, 0, 24, 1440, false},
		{"full fields", 1, 2, 3, 4, 24, (3600+120+3)*24 + 4, false},
		{"max hours", 99, 59, 59, 23, 24, (99*3600+59*60+59)*24 + 23, false},
		{"minutes overflow", 0, 60, 0, 0, 24, 0, true},
		{"seconds overflow", 0, 0, 60, 0, 24, 0, true},
		{"frame overflow", 0, 0, 0, 24, 24, 0, true},
		{"hours overflow", 100, 0, 0, 0, 24, 0, true},
		{"negative", 0, -1, 0, 0, 24, 0, true},
		{"bad fps", 0, 0, 0, 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := New(tt.h, tt.m, tt.s, tt.f, tt.fps)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrames, tc.TotalFrames())
		})
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	tc := mustNew(t, 12, 34, 56, 7)

	assert.Equal(t, 12, tc.Hours())
	assert.Equal(t, 34, tc.Minutes())
	assert.Equal(t, 56, tc.Seconds())
	assert.Equal(t, 7, tc.Frame())
	assert.Equal(t, 24, tc.FrameRate())
}

func TestAddNormalizes(t *testing.T) {
	// 75 seconds rolls into one minute fifteen
	tc := mustNew(t, 0, 0, 0, 0).AddSeconds(75)

	assert.Equal(t, 0, tc.Hours())
	assert.Equal(t, 1, tc.Minutes())
	assert.Equal(t, 15, tc.Seconds())
	assert.Equal(t, 0, tc.Frame())

	tc = mustNew(t, 0, 59, 59, 23).Add(1)
	assert.Equal(t, 1, tc.Hours())
	assert.Equal(t, 0, tc.Minutes())
	assert.Equal(t, 0, tc.Seconds())
	assert.Equal(t, 0, tc.Frame())
}

func TestAddSeconds(t *testing.T) {
	tests := []struct {
		name   string
		start  Timecode
		offset float64
		want   string
	}{
		{"subtract two seconds", FromFrames(60*24, 24), -2.0, "0:00:58.0"},
		{"add half a second", FromFrames(60*24, 24), 0.5, "0:01:00.5"},
		{"round to nearest frame", FromFrames(0, 24), 0.03, "0:00:00.041667"},
		{"zero offset", FromFrames(3723*24, 24), 0, "1:02:03.0"},
		{"clamp at start", FromFrames(24, 24), -5, "0:00:00.0"},
		{"clamp exactly at start", FromFrames(48, 24), -2, "0:00:00.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.start.AddSeconds(tt.offset).String())
		})
	}
}

func TestSubtractNeverNegative(t *testing.T) {
	for _, start := range []int64{0, 1, 23, 24, 1000, 86400} {
		for _, offset := range []float64{0, 0.5, 1, 2.25, 10, 5000} {
			got := FromFrames(start, 24).AddSeconds(-offset)
			assert.GreaterOrEqual(t, got.TotalFrames(), int64(0))
			if offset*24 >= float64(start) {
				assert.True(t, got.IsZero(), "start=%d offset=%v", start, offset)
			}
		}
	}
}

func TestAddSecondsSaturates(t *testing.T) {
	start := mustNew(t, 0, 1, 0, 0)

	far := start.AddSeconds(1e300)
	assert.Equal(t, start.TotalFrames()+maxShift, far.TotalFrames())
	assert.False(t, far.IsZero())

	assert.True(t, start.AddSeconds(-1e300).IsZero())
	assert.True(t, start.AddSeconds(math.Inf(-1)).IsZero())
	assert.Equal(t, start, start.AddSeconds(math.NaN()))
}

func TestString(t *testing.T) {
	tests := []struct {
		tc   Timecode
		want string
	}{
		{FromFrames(0, 24), "0:00:00.0"},
		{FromFrames(12, 24), "0:00:00.5"},
		{FromFrames(6, 24), "0:00:00.25"},
		{FromFrames(1, 24), "0:00:00.041667"},
		{FromFrames((10*3600+5*60+9)*25+5, 25), "10:05:09.2"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tc.String())
		})
	}
}

func TestTotalSeconds(t *testing.T) {
	assert.InDelta(t, 58.5, FromFrames(58*24+12, 24).TotalSeconds(), 1e-9)
}

func TestFromFrames(t *testing.T) {
	assert.True(t, FromFrames(-10, 24).IsZero())
	assert.Equal(t, DefaultFrameRate, FromFrames(5, 0).FrameRate())
}

func TestZeroValue(t *testing.T) {
	var tc Timecode
	assert.Equal(t, "0:00:00.0", tc.String())
	assert.Equal(t, DefaultFrameRate, tc.FrameRate())
}
