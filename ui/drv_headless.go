// drv_headless.go runs a session without any window at all.
//
// Signals are the only way a user can ask us to close, and as there is
// nobody to ask what to do about the disk the configured choice is used,
// which is to save it.

package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/skx/snapvm/display"
	"github.com/skx/snapvm/shutdown"
)

// HeadlessName is the name of the headless driver.
const HeadlessName = "headless"

// Headless is our windowless driver.
type Headless struct {

	// Choice is returned by every call to Confirm.
	Choice shutdown.Choice

	// out receives the status readout, when it is enabled.
	out io.Writer

	statusLine bool

	signals chan os.Signal
	closing chan struct{}

	// stop ends the goroutine forwarding signals.
	stop context.CancelFunc
	once sync.Once
}

// NewHeadless returns a headless driver which writes the status readout
// to the given writer.
func NewHeadless(out io.Writer) *Headless {
	return &Headless{
		Choice:  shutdown.SaveAndQuit,
		out:     out,
		closing: make(chan struct{}, 1),
	}
}

// Setup starts listening for signals.
func (h *Headless) Setup() error {
	h.signals = make(chan os.Signal, 1)
	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	h.stop = cancel

	go h.forward(ctx)
	return nil
}

// forward turns each signal into a close request.
func (h *Headless) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.signals:
			// A request is already pending?  Then drop this one.
			select {
			case h.closing <- struct{}{}:
			default:
			}
		}
	}
}

// TearDown stops listening for signals.
func (h *Headless) TearDown() {
	h.once.Do(func() {
		if h.signals != nil {
			signal.Stop(h.signals)
		}
		if h.stop != nil {
			h.stop()
		}
	})
}

// GetName is part of the module API, and returns the name of this driver.
func (h *Headless) GetName() string {
	return HeadlessName
}

// Screen returns nil, we have no screen.
func (h *Headless) Screen() display.Screen {
	return nil
}

// Configure records whether the status readout is shown.
func (h *Headless) Configure(geom display.Geometry, statusLine bool) {
	h.statusLine = statusLine
}

// SetStatus writes the status readout, one line per update.
func (h *Headless) SetStatus(text string) {
	if !h.statusLine || h.out == nil {
		return
	}
	fmt.Fprintf(h.out, "status: %s\n", text)
}

// CloseRequests returns the channel signals are delivered to.
func (h *Headless) CloseRequests() <-chan struct{} {
	return h.closing
}

// Confirm returns the configured choice.
func (h *Headless) Confirm(ctx context.Context) (shutdown.Choice, error) {
	if err := ctx.Err(); err != nil {
		return shutdown.Continue, err
	}
	return h.Choice, nil
}

// init registers our driver, by name.
func init() {
	Register(HeadlessName, func() Window {
		return NewHeadless(os.Stdout)
	})
}
