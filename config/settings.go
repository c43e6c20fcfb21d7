package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// SettingsEnv names the environment variable which may be used to
// point at a settings file in a non-default location.
const SettingsEnv = "SNAPVM_CONFIG"

const defaultSettingsPath = "~/.config/snapvm/config.toml"

// Settings holds the contents of the optional settings file.
//
// The file provides the regional defaults which the command-line
// options are then applied on top of.
type Settings struct {
	Offset      *int   `toml:"tz_offset"`
	DSTFirstDay *int   `toml:"dst_first_day"`
	DSTLastDay  *int   `toml:"dst_last_day"`
	TimeAdjust  *int   `toml:"time_adjust"`
	Driver      string `toml:"driver"`
	LogLevel    string `toml:"log_level"`
}

// SettingsPath returns the location of the settings file.
func SettingsPath() string {
	if p := strings.TrimSpace(os.Getenv(SettingsEnv)); p != "" {
		return expandPath(p)
	}
	return expandPath(defaultSettingsPath)
}

// LoadSettings reads the settings file at the given path.
//
// A missing file is not an error, the empty settings are returned.
func LoadSettings(path string) (Settings, error) {
	var s Settings

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("read settings: %w", err)
	}

	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// Apply overlays the settings onto the given configuration.
//
// The three clock fields are all-or-nothing, just as they are for the
// --tz: option.
func (s Settings) Apply(base Config) (Config, []string) {
	cfg := base
	var warnings []string

	offset, first, last := cfg.Offset, cfg.DSTFirstDay, cfg.DSTLastDay
	if s.Offset != nil {
		offset = *s.Offset
	}
	if s.DSTFirstDay != nil {
		first = *s.DSTFirstDay
	}
	if s.DSTLastDay != nil {
		last = *s.DSTLastDay
	}
	if ValidOffset(offset) && ValidDay(first) && ValidDay(last) {
		cfg.Offset, cfg.DSTFirstDay, cfg.DSTLastDay = offset, first, last
	} else {
		warnings = append(warnings, fmt.Sprintf("ignoring settings with invalid clock values (tz_offset=%d, dst_first_day=%d, dst_last_day=%d)", offset, first, last))
	}

	if s.TimeAdjust != nil {
		adj := *s.TimeAdjust
		cfg.TimeAdjust = &adj
	}

	if d := strings.TrimSpace(s.Driver); d != "" {
		cfg.Driver = strings.ToLower(d)
	}

	return cfg, warnings
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
