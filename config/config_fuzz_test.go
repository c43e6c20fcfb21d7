package config

import (
	"strings"
	"testing"
)

// FuzzParse ensures parsing never panics, and never produces values
// which are out of range.
func FuzzParse(f *testing.F) {
	f.Add("--tz:120:70:280")
	f.Add("--tz:-720")
	f.Add("--timeadjust:15")
	f.Add("--fullscreen image.im")
	f.Add("--tz:::")

	f.Fuzz(func(t *testing.T, input string) {
		c, _ := Parse(strings.Fields(input), Default())

		if !ValidOffset(c.Offset) {
			t.Fatalf("offset out of range: %d", c.Offset)
		}
		if !ValidDay(c.DSTFirstDay) || !ValidDay(c.DSTLastDay) {
			t.Fatalf("DST window out of range: %d-%d", c.DSTFirstDay, c.DSTLastDay)
		}
		if c.Mode == FullScreen && c.StatusLine {
			t.Fatalf("fullscreen with status line")
		}
	})
}
