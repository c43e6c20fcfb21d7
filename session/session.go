// Package session boots a single session of the virtual machine, and
// sees it through to the end.
//
// The Controller resolves the backing store of the image, negotiates
// the display geometry, configures the clock and the engine, and then
// runs the engine on the calling goroutine.  The window is served
// concurrently, and the user's requests to close it are resolved by a
// supervisor goroutine.  Whichever way the session ends the shutdown
// coordinator sees to it that the disk is flushed.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skx/snapvm/clock"
	"github.com/skx/snapvm/config"
	"github.com/skx/snapvm/display"
	"github.com/skx/snapvm/engine"
	"github.com/skx/snapvm/memory"
	"github.com/skx/snapvm/shutdown"
	"github.com/skx/snapvm/store"
	"github.com/skx/snapvm/ui"
)

// DefaultGrace is how long we wait for the engine to stop, once the user
// chose to quit, before the process is forced to exit.
const DefaultGrace = 5 * time.Second

// Engine is the interface the controller needs from an engine.
type Engine interface {

	// Run executes the image from the given context, blocking until
	// it stops.
	Run(ctx memory.Context) error

	// RequestStop asks the engine to stop at its next safe point.
	RequestStop()

	// OnStatus sets the function which receives status text.
	OnStatus(fn func(string))

	// FirstContext returns the context to resume from.
	FirstContext() memory.Context

	// PrintStats writes the engine's diagnostics.
	PrintStats(w io.Writer)
}

// EngineFactory creates the engine for a session, binding it to the
// backing store and the clock.
type EngineFactory func(h store.Handle, clk *clock.Clock, logger *slog.Logger) (Engine, error)

// NewEngine is the default EngineFactory, which creates our Z80 engine.
func NewEngine(h store.Handle, clk *clock.Clock, logger *slog.Logger) (Engine, error) {
	e, err := engine.New(h, clk, engine.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Controller holds our state.
type Controller struct {
	cfg config.Config

	// id identifies the session in our logs.
	id string

	logger *slog.Logger

	// out receives messages for the user.
	out *heldWriter

	probes    []store.Probe
	window    ui.Window
	newEngine EngineFactory

	// exit is called if the engine fails to stop after the user chose
	// to quit.
	exit  func(code int)
	grace time.Duration

	// mu protects the state, and its history.
	mu      sync.Mutex
	state   State
	history []State
}

// Option is used to configure a Controller.
type Option func(c *Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithOutput sets where messages for the user are written.
func WithOutput(w io.Writer) Option {
	return func(c *Controller) {
		c.out.out = w
	}
}

// WithProbes replaces the probes used to find the backing store.
func WithProbes(probes ...store.Probe) Option {
	return func(c *Controller) {
		c.probes = probes
	}
}

// WithWindow sets the window, rather than choosing a driver by name.
func WithWindow(w ui.Window) Option {
	return func(c *Controller) {
		c.window = w
	}
}

// WithEngineFactory replaces the function which creates the engine.
func WithEngineFactory(f EngineFactory) Option {
	return func(c *Controller) {
		c.newEngine = f
	}
}

// WithExit replaces the function used to force the process to exit.
func WithExit(fn func(code int)) Option {
	return func(c *Controller) {
		c.exit = fn
	}
}

// WithGrace sets how long we wait for the engine to stop.
func WithGrace(d time.Duration) Option {
	return func(c *Controller) {
		c.grace = d
	}
}

// New returns a controller for the given configuration.
func New(cfg config.Config, options ...Option) *Controller {
	c := &Controller{
		cfg:       cfg,
		id:        uuid.NewString(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		out:       &heldWriter{out: os.Stdout},
		probes:    store.DefaultProbes,
		newEngine: NewEngine,
		exit:      os.Exit,
		grace:     DefaultGrace,
		state:     Idle,
		history:   []State{Idle},
	}
	for _, opt := range options {
		opt(c)
	}

	c.logger = c.logger.With(slog.String("session", c.id))
	return c
}

// ID returns the identifier of the session.
func (c *Controller) ID() string {
	return c.id
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// History returns every state the session has been in, in order.
func (c *Controller) History() []State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]State(nil), c.history...)
}

// advance moves to the given state, if it is later than the current one.
func (c *Controller) advance(to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if to <= c.state {
		return false
	}

	c.logger.Debug("session state change",
		slog.String("from", c.state.String()),
		slog.String("to", to.String()))
	c.state = to
	c.history = append(c.history, to)
	return true
}

// Run runs the session, and returns the code the process should exit with.
//
// Run may only be called once.
func (c *Controller) Run() int {
	defer c.advance(Stopped)

	if err := c.cfg.Validate(); err != nil {
		fmt.Fprintf(c.out, "error: %s, aborting\n", err)
		fmt.Fprint(c.out, config.Usage())
		return int(shutdown.ExitNoWork)
	}

	// Find the image, and the disk which goes with it.
	c.advance(Resolving)
	handle, err := store.Resolve(c.cfg.ImagePath, store.Options{Out: c.out, Logger: c.logger}, c.probes...)
	if err != nil {
		if errors.Is(err, store.ErrImageNotFound) {
			c.logger.Info("image not found",
				slog.String("image", c.cfg.ImagePath))
			return int(shutdown.ExitNoWork)
		}
		fmt.Fprintf(c.out, "error: %s\n", err)
		return int(shutdown.ExitFault)
	}
	defer handle.Close()

	// Open the window, and agree upon the geometry.
	c.advance(Negotiating)
	window := c.openWindow()
	defer window.TearDown()

	geom := display.Negotiate(c.cfg.Mode, window.Screen())
	window.Configure(geom, c.cfg.StatusLine)
	c.logger.Info("display negotiated",
		slog.Int("width", geom.Width),
		slog.Int("height", geom.Height),
		slog.Bool("fullscreen", geom.FullScreen))

	// Wire up the clock and the engine.
	c.advance(Configuring)
	clk := clock.New()
	clk.SetOffsetAndDST(c.cfg.Offset, c.cfg.DSTFirstDay, c.cfg.DSTLastDay)
	if c.cfg.TimeAdjust != nil {
		clk.SetTimeAdjustment(*c.cfg.TimeAdjust)
	}

	eng, err := c.newEngine(handle, clk, c.logger)
	if err != nil {
		window.TearDown()
		fmt.Fprintf(c.out, "error: %s\n", err)
		return int(shutdown.ExitFault)
	}
	eng.OnStatus(window.SetStatus)

	coord := shutdown.New(handle, eng,
		shutdown.WithOutput(c.out),
		shutdown.WithStats(c.cfg.Stats),
		shutdown.WithLogger(c.logger))

	if ui.OwnsTerminal(window) {
		c.out.hold()
	}
	defer c.out.release()

	ctx, cancel := context.WithCancel(context.Background())
	engineDone := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.supervise(ctx, window, coord, engineDone)
	}()

	// Run the engine, until it stops.
	c.advance(Running)
	err = eng.Run(eng.FirstContext())
	close(engineDone)

	c.advance(Terminating)
	c.handle(coord, engineEvent(err))

	// The supervisor may have acted first, in which case the disk is
	// flushed now that the engine has stopped.
	coord.Finish()
	cancel()
	wg.Wait()

	window.TearDown()
	c.out.release()

	out := coord.Outcome()
	c.logger.Info("session stopped",
		slog.String("cause", out.Cause),
		slog.Int("code", int(out.Code)))
	return int(out.Code)
}

// engineEvent converts the result of running the engine into an event.
func engineEvent(err error) shutdown.Event {
	var q *engine.QuitSignal
	if errors.As(err, &q) {
		return shutdown.EngineQuit{Reason: q.Reason}
	}
	if err == nil {
		return shutdown.EngineQuit{Reason: "engine stopped"}
	}
	return shutdown.EngineFault{Err: err}
}

// handle passes an event to the coordinator.
func (c *Controller) handle(coord *shutdown.Coordinator, ev shutdown.Event) (shutdown.Outcome, bool) {
	out, ok := coord.Handle(ev)
	if ok {
		c.advance(Terminating)
	}
	return out, ok
}

// openWindow creates, and sets up, the window.
//
// A driver which can't be found, or set up, is replaced by the headless
// driver.
func (c *Controller) openWindow() ui.Window {
	window := c.window
	if window == nil {
		name := c.cfg.Driver
		if name == "" {
			name = ui.Default()
		}

		var err error
		window, err = ui.New(name)
		if err != nil {
			fmt.Fprintf(c.out, "warning: unknown driver '%s', using %s\n", name, ui.HeadlessName)
		}
		if err != nil || window.GetName() == ui.HeadlessName {
			window = ui.NewHeadless(c.out)
		}
	}

	if err := window.Setup(); err != nil {
		c.logger.Warn("failed to set up window",
			slog.String("driver", window.GetName()),
			slog.String("error", err.Error()))
		fmt.Fprintf(c.out, "warning: driver '%s' failed: %s, using %s\n", window.GetName(), err, ui.HeadlessName)

		window = ui.NewHeadless(c.out)
		window.Setup()
	}

	c.logger.Debug("window ready",
		slog.String("driver", window.GetName()))
	return window
}

// supervise resolves the user's requests to close the window.
//
// If the user chooses to quit the engine is asked to stop, and Run
// flushes the disk once it has.  If the engine doesn't stop within the
// grace period the disk is flushed here, and the process is forced to
// exit.
func (c *Controller) supervise(ctx context.Context, window ui.Window, coord *shutdown.Coordinator, engineDone <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-coord.Done():
			return
		case <-window.CloseRequests():
		}

		c.handle(coord, shutdown.CloseRequest{})

		choice, err := window.Confirm(ctx)
		if err != nil {
			c.logger.Debug("close prompt dismissed",
				slog.String("error", err.Error()))
			return
		}
		c.logger.Info("close request resolved",
			slog.String("choice", choice.String()))

		out, ok := c.handle(coord, shutdown.CloseResolved{Choice: choice})
		if !ok {
			continue
		}

		select {
		case <-engineDone:
		case <-time.After(c.grace):
			c.logger.Error("engine didn't stop, forcing exit",
				slog.Duration("grace", c.grace))
			out = coord.Finish()
			window.TearDown()
			c.out.release()
			c.exit(int(out.Code))
		}
		return
	}
}
