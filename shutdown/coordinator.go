// Package shutdown guarantees that the durable state of a session is
// flushed, whichever way the session ends.
//
// The Coordinator acts upon the first terminal event it is given, and
// ignores every event after that.  It may be called from the goroutine
// running the engine, and from the goroutine serving the windowing
// layer, at the same time.
//
// When the user closes the window the engine may still be running, so
// the coordinator only asks it to stop.  The disk is flushed by Finish,
// once the engine has returned.
package shutdown

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Flusher is the part of a backing store the coordinator needs.
type Flusher interface {
	SaveDiskChanges() bool
}

// Engine is the part of the engine the coordinator needs.
type Engine interface {

	// RequestStop asks the engine to stop at its next safe point.
	RequestStop()

	// PrintStats writes the engine's diagnostics.
	PrintStats(w io.Writer)
}

// Coordinator holds our state.
type Coordinator struct {
	store  Flusher
	engine Engine

	// out receives messages for the user.
	out io.Writer

	// stats enables printing diagnostics when we terminate.
	stats bool

	logger *slog.Logger

	// mu protects fired, and pending.
	mu sync.Mutex

	// fired is set by the first terminal event, which is then held
	// in pending until Finish acts upon it.
	fired   bool
	pending Event

	// finish ensures the flush happens once.
	finish sync.Once

	// done is closed once outcome has been recorded.
	done    chan struct{}
	outcome Outcome
}

// Option is used to configure a Coordinator.
type Option func(c *Coordinator)

// WithOutput sets where messages for the user are written.
func WithOutput(w io.Writer) Option {
	return func(c *Coordinator) {
		c.out = w
	}
}

// WithStats enables, or disables, the printing of diagnostics.
func WithStats(enabled bool) Option {
	return func(c *Coordinator) {
		c.stats = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// New returns a coordinator for the given store and engine.
func New(store Flusher, engine Engine, options ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		engine: engine,
		out:    io.Discard,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:   make(chan struct{}),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Terminal reports whether the event ends a session.
func Terminal(ev Event) bool {
	switch e := ev.(type) {
	case EngineQuit, EngineFault:
		return true
	case CloseResolved:
		return e.Choice != Continue
	}
	return false
}

// Handle acts upon the given event.
//
// The returned bool is true only for the single event which was acted
// upon; events which aren't terminal, and every event which arrives
// after the first terminal one, are ignored.
//
// Events raised by the engine are acted upon in full, as the engine has
// already stopped.  A CloseResolved only asks the engine to stop, and
// the returned Outcome won't be flushed; Finish must be called once the
// engine returns.
func (c *Coordinator) Handle(ev Event) (Outcome, bool) {
	if !Terminal(ev) {
		c.logger.Debug("ignoring non-terminal event",
			slog.String("event", fmt.Sprintf("%T", ev)))
		return Outcome{}, false
	}

	c.mu.Lock()
	if c.fired {
		c.mu.Unlock()
		c.logger.Debug("ignoring event, session already terminating",
			slog.String("event", fmt.Sprintf("%T", ev)))
		return Outcome{}, false
	}
	c.fired = true
	c.pending = ev
	c.mu.Unlock()

	if _, ok := ev.(CloseResolved); ok {
		out := outcomeOf(ev)
		c.logger.Info("session stopping",
			slog.String("cause", out.Cause))
		c.engine.RequestStop()
		return out, true
	}

	return c.Finish(), true
}

// Finish flushes the disk, if the event which ended the session calls
// for that, and prints our diagnostics.
//
// It should be called once the engine has stopped.  Only the first call
// does anything, later calls wait for it and return the same Outcome.
// If no terminal event has been handled Finish does nothing, and returns
// the zero Outcome.
func (c *Coordinator) Finish() Outcome {
	c.mu.Lock()
	ev := c.pending
	c.mu.Unlock()

	if ev == nil {
		return Outcome{}
	}

	c.finish.Do(func() {
		out := outcomeOf(ev)

		switch e := ev.(type) {
		case EngineQuit:
			out.Flushed = c.store.SaveDiskChanges()

		case EngineFault:
			// Best-effort, a failure has already been reported by the store.
			out.Flushed = c.store.SaveDiskChanges()
			fmt.Fprintf(c.out, "error: %s\n", e.Err)

		case CloseResolved:
			if e.Choice == SaveAndQuit {
				out.Flushed = c.store.SaveDiskChanges()
			}
		}
		c.report(out.Cause)

		c.logger.Info("session terminating",
			slog.String("cause", out.Cause),
			slog.Int("code", int(out.Code)),
			slog.Bool("flushed", out.Flushed))

		c.outcome = out
		close(c.done)
	})

	return c.outcome
}

// outcomeOf returns the exit code, and cause, for a terminal event.
func outcomeOf(ev Event) Outcome {
	switch e := ev.(type) {
	case EngineQuit:
		return Outcome{Code: ExitClean, Cause: e.Reason}
	case EngineFault:
		return Outcome{Code: ExitFault, Cause: fmt.Sprintf("fault: %s", e.Err)}
	case CloseResolved:
		if e.Choice == SaveAndQuit {
			return Outcome{Code: ExitClean, Cause: "close window (disk saved)"}
		}
		return Outcome{Code: ExitClean, Cause: "close window (without saving disk)"}
	}
	return Outcome{}
}

// report prints our diagnostics, if they were requested.
func (c *Coordinator) report(cause string) {
	if !c.stats {
		return
	}
	fmt.Fprintf(c.out, "\n## terminating, cause: %s\n", cause)
	c.engine.PrintStats(c.out)
}

// Done returns a channel which is closed once Finish has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Outcome blocks until Finish has completed, then returns what was done.
func (c *Coordinator) Outcome() Outcome {
	<-c.done
	return c.outcome
}
