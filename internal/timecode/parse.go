package timecode

import (
	"math"
	"strconv"
	"strings"
)

// Parse reads a loosely formatted h:mm:ss or hh:mm:ss string. Spreadsheet
// cells are often sloppy, so fields are read like a lenient integer
// conversion: leading digits count, anything else is zero, and missing or
// extra fields are tolerated. The bool is false when the string carries no
// digits at all or a field is out of range.
func Parse(s string, fps int) (Timecode, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timecode{}, false
	}

	var fields [3]int
	sawDigit := false
	for i, part := range strings.SplitN(s, ":", 4) {
		if i == len(fields) {
			break
		}
		n, ok := leadingInt(part)
		if ok {
			sawDigit = true
		}
		fields[i] = n
	}
	if !sawDigit {
		return Timecode{}, false
	}

	tc, err := New(fields[0], fields[1], fields[2], 0, fps)
	if err != nil {
		return Timecode{}, false
	}
	return tc, true
}

// leadingInt converts the optional sign and leading digits of s. The bool
// reports whether any digit was found.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// too many digits; any out-of-range value is rejected later
		n = math.MaxInt32
	}
	if neg {
		n = -n
	}
	return n, true
}
