package timecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"1:02:03", "1:02:03.0", true},
		{"01:02:03", "1:02:03.0", true},
		{"0:01:00", "0:01:00.0", true},
		{" 0:01:00 ", "0:01:00.0", true},
		{"12:00:59", "12:00:59.0", true},
		{"1:2:3", "1:02:03.0", true},
		{"1:02", "1:02:00.0", true},
		{"5", "5:00:00.0", true},
		{"1:02:03:04", "1:02:03.0", true},
		{"1:xx:03", "1:00:03.0", true},
		{"1:02:03s", "1:02:03.0", true},
		{"", "", false},
		{"   ", "", false},
		{"abc", "", false},
		{"n/a", "", false},
		{"::", "", false},
		{"0:60:00", "", false},
		{"0:00:75", "", false},
		{"100:00:00", "", false},
		{"-1:00:00", "", false},
		{"99999999999999999999:00:00", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tc, ok := Parse(tt.input, DefaultFrameRate)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, tc.String())
			}
		})
	}
}

func TestParseLeadingZeroInsensitive(t *testing.T) {
	a, okA := Parse("1:02:03", 24)
	b, okB := Parse("01:02:03", 24)

	assert.True(t, okA)
	assert.True(t, okB)
	assert.Equal(t, a, b)
}

func TestParseHasNoFrames(t *testing.T) {
	tc, ok := Parse("0:00:10", 30)

	assert.True(t, ok)
	assert.Equal(t, 0, tc.Frame())
	assert.Equal(t, 30, tc.FrameRate())
	assert.Equal(t, int64(300), tc.TotalFrames())
}

func TestParseInvalidFrameRate(t *testing.T) {
	_, ok := Parse("0:00:10", 0)
	assert.False(t, ok)
}
