// Package ui is an abstraction over the window a session is shown in.
//
// The window renders the status readout, reports the size of the screen
// so the display geometry can be negotiated, and turns the user's
// attempts to close it into close requests.  A close request is then
// resolved by asking the user what should happen to the disk.
//
// We want to create a factory that can instantiate a driver given just
// a name, so drivers register themselves via Register.
package ui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/skx/snapvm/display"
	"github.com/skx/snapvm/shutdown"
	"golang.org/x/term"
)

// Window is the interface that must be implemented by anything that
// wishes to be used as a windowing driver.
type Window interface {

	// Setup prepares the driver, before the session starts.
	Setup() error

	// TearDown releases everything Setup acquired.  It is safe to call
	// more than once.
	TearDown()

	// GetName will return the name of the driver.
	GetName() string

	// Screen returns the screen the window is shown upon, which may be
	// nil if the driver has no screen.
	Screen() display.Screen

	// Configure sets the negotiated geometry, and whether the status
	// readout is shown.
	Configure(geom display.Geometry, statusLine bool)

	// SetStatus updates the status readout.
	SetStatus(text string)

	// CloseRequests returns a channel which receives a value each time
	// the user tries to close the window.
	CloseRequests() <-chan struct{}

	// Confirm asks the user what to do about a close request, blocking
	// until they decide or the context is canceled.
	Confirm(ctx context.Context) (shutdown.Choice, error)
}

// TerminalOwner is implemented by drivers which take over the terminal
// while they're set up, nothing else may write to it until TearDown.
type TerminalOwner interface {
	OwnsTerminal() bool
}

// OwnsTerminal reports whether the given window has taken over the
// terminal.
func OwnsTerminal(w Window) bool {
	if o, ok := w.(TerminalOwner); ok {
		return o.OwnsTerminal()
	}
	return false
}

// This is a map of known-drivers
var handlers = struct {
	m map[string]Constructor
}{m: make(map[string]Constructor)}

// Constructor is the signature of a constructor-function
// which is used to instantiate an instance of a driver.
type Constructor func() Window

// Register makes a windowing driver available, by name.
//
// When one needs to be created the constructor can be called
// to create an instance of it.
func Register(name string, obj Constructor) {
	// Downcase for consistency.
	name = strings.ToLower(name)

	handlers.m[name] = obj
}

// New creates an instance of the driver with the given name.
func New(name string) (Window, error) {
	// Downcase for consistency.
	name = strings.ToLower(name)

	// Do we have a constructor with the given name?
	ctor, ok := handlers.m[name]
	if !ok {
		return nil, fmt.Errorf("failed to lookup driver by name '%s'", name)
	}
	return ctor(), nil
}

// Drivers returns all available driver-names, sorted.
func Drivers() []string {
	valid := []string{}

	for x := range handlers.m {
		valid = append(valid, x)
	}
	sort.Strings(valid)
	return valid
}

// Default returns the name of the driver to use when none was chosen.
//
// The terminal driver is only useful when we're attached to one.
func Default() string {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return TermName
	}
	return HeadlessName
}
