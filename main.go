// entry point

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/skx/snapvm/config"
	"github.com/skx/snapvm/session"
	"github.com/skx/snapvm/shutdown"
	"github.com/skx/snapvm/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run parses the given arguments, runs a session, and returns the code
// the process should exit with.
func run(args []string, out io.Writer) int {

	// The settings file provides our regional defaults.
	settings, err := config.LoadSettings(config.SettingsPath())
	if err != nil {
		fmt.Fprintf(out, "warning: %s\n", err)
	}

	log, msg := newLogger(settings.LogLevel)
	if msg != "" {
		fmt.Fprintf(out, "warning: %s\n", msg)
	}

	base, warnings := settings.Apply(config.Default())
	cfg, more := config.Parse(args, base)
	for _, w := range append(warnings, more...) {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	if cfg.ShowVersion {
		fmt.Fprint(out, version.GetVersionBanner())
		return int(shutdown.ExitNoWork)
	}

	log.Debug("starting",
		slog.String("version", version.GetVersionString()),
		slog.String("image", cfg.ImagePath),
		slog.String("mode", cfg.Mode.String()))

	//
	// Run the session.
	//
	return session.New(cfg,
		session.WithLogger(log),
		session.WithOutput(out)).Run()
}

// newLogger creates our logger.
//
// The level comes from the settings file, if it is set there, and is
// raised to debug if $DEBUG is non-empty.
func newLogger(level string) (*slog.Logger, string) {
	var msg string

	// Setup our logging level - default to warnings or higher
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)

	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			msg = fmt.Sprintf("ignoring invalid log_level '%s'", level)
			lvl.Set(slog.LevelWarn)
		}
	}

	// But show "everything" if $DEBUG is non.empty
	if os.Getenv("DEBUG") != "" {
		lvl.Set(slog.LevelDebug)
	}

	//
	// Create our logging handler, using the level we've just setup
	//
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	return log, msg
}
