package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSettings_MissingFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}

	c, w := s.Apply(Default())
	if len(w) != 0 {
		t.Fatalf("unexpected warnings %v", w)
	}
	if c != Default() {
		t.Fatalf("empty settings changed the configuration")
	}
}

func TestLoadSettings_Parses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
tz_offset = -300
dst_first_day = 70
dst_last_day = 308
time_adjust = 5
driver = " Headless "
log_level = "debug"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	if s.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", s.LogLevel)
	}

	c, w := s.Apply(Default())
	if len(w) != 0 {
		t.Fatalf("unexpected warnings %v", w)
	}
	if c.Offset != -300 || c.DSTFirstDay != 70 || c.DSTLastDay != 308 {
		t.Fatalf("clock values = %d %d %d", c.Offset, c.DSTFirstDay, c.DSTLastDay)
	}
	if c.TimeAdjust == nil || *c.TimeAdjust != 5 {
		t.Fatalf("time adjustment not applied")
	}
	if c.Driver != "headless" {
		t.Fatalf("Driver = %q", c.Driver)
	}

	// Command-line options are applied on top
	c, _ = Parse([]string{"--tz:0"}, c)
	if c.Offset != 0 || c.DSTFirstDay != 70 {
		t.Fatalf("options didn't override settings: %d %d", c.Offset, c.DSTFirstDay)
	}
}

func TestLoadSettings_InvalidClockIsAllOrNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
tz_offset = 30
dst_last_day = 400
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}

	c, w := s.Apply(Default())
	if len(w) != 1 {
		t.Fatalf("expected a warning, got %v", w)
	}
	if c.Offset != DefaultOffset || c.DSTLastDay != DefaultDSTLastDay {
		t.Fatalf("invalid settings were partially applied")
	}
}

func TestLoadSettings_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`tz_offset = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := LoadSettings(path)
	if err == nil {
		t.Fatalf("LoadSettings returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse settings") {
		t.Fatalf("error = %q, want it to mention parse settings", err.Error())
	}
}

func TestSettingsPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(SettingsEnv, "")

	got := SettingsPath()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("SettingsPath = %q, want it under HOME %q", got, home)
	}

	t.Setenv(SettingsEnv, "~/other.toml")
	if got := SettingsPath(); got != filepath.Join(home, "other.toml") {
		t.Fatalf("SettingsPath = %q, want override", got)
	}
}
