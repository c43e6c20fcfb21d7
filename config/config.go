// Package config turns the raw command-line tokens we're given into the
// validated, immutable, startup parameters of a session.
//
// Parsing never fails.  Any value we cannot make sense of is ignored,
// the field in question keeps its previous value, and a warning is
// returned to the caller so that it can be shown to the user.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingImage is returned by Validate when no image was named upon
// the command-line, which means there is no work for us to do.
var ErrMissingImage = errors.New("missing image (base)filename")

// DisplayMode describes how the display surface should be presented.
type DisplayMode int

const (
	// Windowed uses a fixed-size window, with decorations.
	Windowed DisplayMode = iota

	// FullScreen attempts to take over the whole physical screen.
	FullScreen
)

// String returns a human-readable version of the display mode.
func (d DisplayMode) String() string {
	if d == FullScreen {
		return "fullscreen"
	}
	return "windowed"
}

const (
	// DefaultOffset is the default clock offset, in minutes, which
	// corresponds to central Europe.
	DefaultOffset = 60

	// DefaultDSTFirstDay is the day-of-year upon which daylight saving
	// begins: the sunday at or before the 31st of March.
	DefaultDSTFirstDay = 31 + 28 + 31 - 6

	// DefaultDSTLastDay is the day-of-year upon which daylight saving
	// ends: the sunday at or before the 31st of October.
	DefaultDSTLastDay = 31 + 28 + 31 + 30 + 31 + 30 + 31 + 31 + 30 + 31 - 6

	// MinOffset and MaxOffset bound the clock offset.
	MinOffset = -720
	MaxOffset = 780

	// MaxDay is the largest valid day-of-year boundary.
	MaxDay = 366
)

// Config holds the startup parameters of a single session.
type Config struct {
	// ImagePath is the (base)name of the image to boot.
	ImagePath string

	// Mode is the requested display mode.
	Mode DisplayMode

	// StatusLine enables the status readout beneath the display.
	StatusLine bool

	// Stats enables the printing of diagnostics when we exit.
	Stats bool

	// Offset is the clock offset from UTC, in minutes.
	Offset int

	// DSTFirstDay and DSTLastDay bound the daylight-saving window,
	// expressed as days of the year.
	DSTFirstDay int
	DSTLastDay  int

	// TimeAdjust holds an explicit clock adjustment, in minutes.
	//
	// nil means no adjustment was requested.
	TimeAdjust *int

	// Driver is the name of the windowing driver to use, empty for
	// the default.
	Driver string

	// ShowVersion is set when the user asked for our version.
	ShowVersion bool
}

// Default returns a configuration populated with our regional defaults.
func Default() Config {
	return Config{
		Mode:        Windowed,
		Offset:      DefaultOffset,
		DSTFirstDay: DefaultDSTFirstDay,
		DSTLastDay:  DefaultDSTLastDay,
	}
}

// Validate ensures the configuration describes some work to do.
func (c Config) Validate() error {
	if c.ImagePath == "" {
		return ErrMissingImage
	}
	return nil
}

// Usage returns the usage text which is shown when no image was given.
func Usage() string {
	return "Usage: snapvm [--statusline] [--stats] [--fullscreen] [--timeadjust:nn] [--tz:offset[:firstDay:lastDay]] [--driver:name] image-file[.im]\n"
}

// Parse processes the given tokens, starting from the supplied base
// configuration, and returns the result along with any warnings.
func Parse(args []string, base Config) (Config, []string) {
	cfg := base
	var warnings []string

	warn := func(format string, a ...any) {
		warnings = append(warnings, fmt.Sprintf(format, a...))
	}

	for _, arg := range args {

		// Options are matched case-insensitively, the image name
		// keeps whatever case it was given in.
		lc := strings.ToLower(arg)

		switch {
		case lc == "--statusline":
			cfg.StatusLine = true
		case lc == "--stats":
			cfg.Stats = true
		case lc == "--fullscreen":
			cfg.Mode = FullScreen
		case lc == "--version":
			cfg.ShowVersion = true
		case strings.HasPrefix(lc, "--timeadjust:"):
			val := strings.TrimPrefix(lc, "--timeadjust:")
			minutes, err := strconv.Atoi(val)
			if err != nil {
				warn("ignoring invalid argument '%s' for --timeadjust:", val)
				continue
			}
			cfg.TimeAdjust = &minutes
		case strings.HasPrefix(lc, "--tz:"):
			offset, first, last, msg := parseTZ(strings.TrimPrefix(lc, "--tz:"), cfg)
			if msg != "" {
				warn(msg, arg)
				continue
			}
			cfg.Offset = offset
			cfg.DSTFirstDay = first
			cfg.DSTLastDay = last
		case strings.HasPrefix(lc, "--driver:"):
			cfg.Driver = strings.TrimPrefix(lc, "--driver:")
		case strings.HasPrefix(arg, "--"):
			warn("ignoring invalid option '%s'", arg)
		case cfg.ImagePath == "":
			cfg.ImagePath = arg
		default:
			warn("ignoring argument '%s'", arg)
		}
	}

	// Fullscreen mode has no room for a status line.
	if cfg.Mode == FullScreen {
		cfg.StatusLine = false
	}

	return cfg, warnings
}

// parseTZ handles the value of a --tz: option.
//
// Either all three values are returned, or a non-empty message format
// (with a single %s for the whole option) explains why none of them are.
func parseTZ(val string, cur Config) (int, int, int, string) {
	parts := strings.Split(val, ":")
	if len(parts) != 1 && len(parts) != 3 {
		return 0, 0, 0, "ignoring invalid option with argument count '%s'"
	}

	offset, err := strconv.Atoi(parts[0])
	if err != nil || !ValidOffset(offset) {
		return 0, 0, 0, "ignoring option with invalid values '%s'"
	}

	first, last := cur.DSTFirstDay, cur.DSTLastDay
	if len(parts) == 3 {
		first, err = strconv.Atoi(parts[1])
		if err != nil || !ValidDay(first) {
			return 0, 0, 0, "ignoring option with invalid values '%s'"
		}
		last, err = strconv.Atoi(parts[2])
		if err != nil || !ValidDay(last) {
			return 0, 0, 0, "ignoring option with invalid values '%s'"
		}
	}

	return offset, first, last, ""
}

// ValidOffset reports whether the clock offset is in range.
func ValidOffset(minutes int) bool {
	return minutes >= MinOffset && minutes <= MaxOffset
}

// ValidDay reports whether the day-of-year boundary is in range.
func ValidDay(day int) bool {
	return day >= 0 && day <= MaxDay
}
