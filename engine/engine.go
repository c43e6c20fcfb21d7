// Package engine is the reference engine which executes images.
//
// The machine is a Z80, with the 64k of memory an image provides.
// Programs talk to the outside world via I/O ports: they can publish
// status text, quit, save a snapshot of themselves, read and write the
// sectors of a disk, and read the clock.
//
// The engine never stops by itself unless the program asks it to.  A
// stop may be requested from any goroutine, and takes effect at the
// next instruction boundary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koron-go/z80"
	"github.com/skx/snapvm/clock"
	"github.com/skx/snapvm/disk"
	"github.com/skx/snapvm/memory"
	"github.com/skx/snapvm/store"
)

var (
	// ErrTrap is returned when a program raises a trap, which is how
	// programs report an unrecoverable condition.
	ErrTrap = errors.New("TRAP")

	// ErrPanic is returned when executing a program panicked.
	ErrPanic = errors.New("PANIC")
)

// QuitSignal is returned by Run when the engine stopped cooperatively.
type QuitSignal struct {
	Reason string
}

// Error returns the reason the engine stopped.
func (q *QuitSignal) Error() string {
	return "quit: " + q.Reason
}

// Engine is the object that holds our emulator state.
type Engine struct {

	// CPU contains the virtual CPU we use to execute code.
	CPU z80.CPU

	// Ports contains the I/O ports we know how to handle, indexed by
	// their number.
	Ports map[uint8]PortHandler

	// Memory contains the memory the image was loaded into.
	Memory *memory.Memory

	// Drive contains the disk, nil if there is no disk.
	Drive *disk.Pack

	// Store is the backing store, used when the program saves a snapshot.
	Store store.Handle

	// Clock provides the time of day.
	Clock *clock.Clock

	// Logger holds a logger which we use for debugging and diagnostics.
	Logger *slog.Logger

	// status receives each complete line of status text.
	status func(string)
	statusMu sync.Mutex

	// statusBuf builds up the current line of status text.
	statusBuf []byte

	// nameBuf builds up the name of a snapshot.
	nameBuf []byte

	// snapshotOK records the result of the last snapshot.
	snapshotOK bool

	// sector, sectorBuf, and sectorPos hold the state of the disk ports.
	sector    int
	sectorBuf []byte
	sectorPos int
	diskOK    bool

	// latched holds the time read by the clock ports.
	latched time.Time

	// cancel stops the current run, stopping records a stop request
	// which arrived before the run began.
	mu       sync.Mutex
	cancel   context.CancelFunc
	stopping atomic.Bool

	// quit is set by port handlers which end the run.
	quit error

	// statsMu protects stats, which are read from other goroutines.
	statsMu sync.Mutex
	stats   Stats
}

// Option is used to configure an Engine.
type Option func(e *Engine) error

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) error {
		e.Logger = l
		return nil
	}
}

// WithStatusConsumer sets the function which receives status text.
func WithStatusConsumer(fn func(string)) Option {
	return func(e *Engine) error {
		e.OnStatus(fn)
		return nil
	}
}

// New returns an engine for the image held by the given store.
//
// The store, and its memory and disk, are bound to the engine here, and
// never change.
func New(handle store.Handle, clk *clock.Clock, options ...Option) (*Engine, error) {
	if handle == nil {
		return nil, fmt.Errorf("no backing store")
	}
	if clk == nil {
		clk = clock.New()
	}

	e := &Engine{
		Memory: handle.Memory(),
		Drive:  handle.Drive(),
		Store:  handle,
		Clock:  clk,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Ports:  DefaultPorts(),
	}

	for _, opt := range options {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// OnStatus sets the function which receives status text.
func (e *Engine) OnStatus(fn func(string)) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	e.status = fn
}

// FirstContext returns the context the image was suspended in, which is
// where Run should resume from.
func (e *Engine) FirstContext() memory.Context {
	return e.Memory.Context()
}

// RequestStop asks the engine to stop, at its next safe point.
//
// It may be called from any goroutine, and more than once.
func (e *Engine) RequestStop() {
	e.stopping.Store(true)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Run executes the image from the given context.
//
// The function will not return until execution stops.  A *QuitSignal
// is returned if the program halted, quit, or a stop was requested; any
// other error means the engine failed.
func (e *Engine) Run(ctx memory.Context) (err error) {

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	if e.stopping.Load() {
		return &QuitSignal{Reason: "stop requested"}
	}

	// A panic in a port handler is a fault, like any other.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	// Create the CPU, pointing to our memory, and restore the
	// registers the image was suspended with.
	e.CPU = z80.CPU{
		States: z80.States{
			SPR: z80.SPR{
				PC: ctx.PC,
				SP: ctx.SP,
				IX: ctx.IX,
				IY: ctx.IY,
			},
		},
		Memory: e.Memory,
		IO:     e,
	}
	e.CPU.AF.SetU16(ctx.AF)
	e.CPU.BC.SetU16(ctx.BC)
	e.CPU.DE.SetU16(ctx.DE)
	e.CPU.HL.SetU16(ctx.HL)

	e.quit = nil
	e.Logger.Debug("engine starting",
		slog.String("pc", fmt.Sprintf("0x%04X", ctx.PC)),
		slog.String("sp", fmt.Sprintf("0x%04X", ctx.SP)))

	start := time.Now()
	err = e.CPU.Run(runCtx)
	elapsed := time.Since(start)
	e.count(func(s *Stats) {
		s.Elapsed += elapsed
		s.Runs++
	})

	// A port handler ended the run?
	if e.quit != nil {
		return e.quit
	}

	// Were we asked to stop?
	if e.stopping.Load() || runCtx.Err() != nil {
		return &QuitSignal{Reason: "stop requested"}
	}

	// No error?  Then end - the CPU hit a HALT.
	if err == nil {
		return &QuitSignal{Reason: "halt"}
	}

	return fmt.Errorf("unexpected error running CPU: %w", err)
}

// end stops the current run, with the given result.
func (e *Engine) end(result error) {
	e.quit = result

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// registers returns the current register file.
func (e *Engine) registers() memory.Context {
	return memory.Context{
		PC: e.CPU.PC,
		SP: e.CPU.SP,
		AF: e.CPU.AF.U16(),
		BC: e.CPU.BC.U16(),
		DE: e.CPU.DE.U16(),
		HL: e.CPU.HL.U16(),
		IX: e.CPU.IX,
		IY: e.CPU.IY,
	}
}

// publish hands a line of status text to the consumer.
func (e *Engine) publish(text string) {
	e.statusMu.Lock()
	fn := e.status
	e.statusMu.Unlock()

	e.count(func(s *Stats) { s.StatusUpdates++ })
	if fn != nil {
		fn(text)
	}
}
