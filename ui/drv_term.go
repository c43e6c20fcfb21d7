// drv_term.go uses the Termbox library to show a session in the terminal.
//
// A goroutine is launched which collects any keyboard input.  Ctrl-C,
// Ctrl-Q, and Escape are treated as a request to close the window, any
// other key is ignored unless we're waiting for the user to answer the
// close prompt.

package ui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"
	"github.com/skx/snapvm/display"
	"github.com/skx/snapvm/shutdown"
	"golang.org/x/term"
)

// TermName is the name of the terminal driver.
const TermName = "term"

// closePrompt is shown when the user tries to close the window.
const closePrompt = "Close: [c]ontinue, [s]ave disk and quit, [q]uit without saving"

// TermboxWindow is our terminal driver, using termbox.
type TermboxWindow struct {

	// oldState contains the state of the terminal, before switching to RAW mode
	oldState *term.State

	// Cancel holds a context which can be used to close our polling goroutine
	Cancel context.CancelFunc

	// mu protects everything below.
	mu sync.Mutex

	// prompt receives keys while the close prompt is shown.
	prompt chan rune

	geom       display.Geometry
	statusLine bool
	status     string

	closing chan struct{}
	once    sync.Once

	// signals receives SIGTERM and SIGHUP, and hungUp is set once one
	// arrived, as nobody may be left to answer the close prompt.
	signals chan os.Signal
	hungUp  bool

	// drawMu serializes drawing, termbox isn't safe for concurrent use.
	drawMu sync.Mutex
}

// Setup ensures that the termbox init functions are called, and our
// terminal is set into RAW mode.
func (tw *TermboxWindow) Setup() error {

	var err error

	// switch STDIN into 'raw' mode - we must do this before
	// we setup termbox.
	tw.oldState, err = term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("error making raw terminal %s", err)
	}

	// Setup the terminal.
	err = termbox.Init()
	if err != nil {
		term.Restore(int(os.Stdin.Fd()), tw.oldState)
		tw.oldState = nil
		return fmt.Errorf("error initializing terminal %s", err)
	}

	tw.closing = make(chan struct{}, 1)

	// Allow our polling of keyboard to be canceled
	ctx, cancel := context.WithCancel(context.Background())
	tw.Cancel = cancel

	// Start polling for keyboard input "in the background".
	go tw.pollKeyboard(ctx)

	tw.signals = make(chan os.Signal, 1)
	signal.Notify(tw.signals, syscall.SIGTERM, syscall.SIGHUP)
	go tw.pollSignals(ctx)

	tw.draw()
	return nil
}

// pollKeyboard runs in a goroutine and routes keyboard input.
func (tw *TermboxWindow) pollKeyboard(ctx context.Context) {
	for {
		// Are we done?
		select {
		case <-ctx.Done():
			return
		default:
			// NOP
		}

		ev := termbox.PollEvent()
		switch ev.Type {
		case termbox.EventInterrupt:
			// TearDown woke us, the context will tell us to go.
		case termbox.EventResize:
			tw.draw()
		case termbox.EventKey:
			tw.key(ev)
		}
	}
}

// pollSignals runs in a goroutine and routes signals.
func (tw *TermboxWindow) pollSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tw.signals:
			tw.hangUp()
		}
	}
}

// hangUp handles a signal asking us to go away.
//
// The disk is saved: a pending prompt is answered for the user, and a
// close request is raised which Confirm will answer without asking.
func (tw *TermboxWindow) hangUp() {
	tw.mu.Lock()
	tw.hungUp = true
	prompt := tw.prompt
	tw.mu.Unlock()

	if prompt != nil {
		select {
		case prompt <- 's':
		default:
		}
		return
	}

	select {
	case tw.closing <- struct{}{}:
	default:
	}
}

// key handles a single keypress.
func (tw *TermboxWindow) key(ev termbox.Event) {
	tw.mu.Lock()
	prompt := tw.prompt
	tw.mu.Unlock()

	if prompt != nil {
		r := ev.Ch
		if r == 0 {
			r = rune(ev.Key)
		}
		select {
		case prompt <- r:
		default:
		}
		return
	}

	switch ev.Key {
	case termbox.KeyCtrlC, termbox.KeyCtrlQ, termbox.KeyEsc:
		select {
		case tw.closing <- struct{}{}:
		default:
		}
	}
}

// TearDown resets the state of the terminal, disables the background
// polling of keys, and generally gets us ready for exit.
func (tw *TermboxWindow) TearDown() {
	tw.once.Do(func() {
		if tw.signals != nil {
			signal.Stop(tw.signals)
		}

		// Cancel the keyboard reading
		if tw.Cancel != nil {
			tw.Cancel()
			termbox.Interrupt()
		}

		// Terminate the GUI.
		tw.drawMu.Lock()
		if termbox.IsInit {
			termbox.Close()
		}
		tw.drawMu.Unlock()

		// Restore the terminal
		if tw.oldState != nil {
			term.Restore(int(os.Stdin.Fd()), tw.oldState)
		}
	})
}

// GetName is part of the module API, and returns the name of this driver.
func (tw *TermboxWindow) GetName() string {
	return TermName
}

// OwnsTerminal is true once termbox has been set up.
func (tw *TermboxWindow) OwnsTerminal() bool {
	tw.drawMu.Lock()
	defer tw.drawMu.Unlock()

	return termbox.IsInit
}

// Screen returns the terminal we're running in.
func (tw *TermboxWindow) Screen() display.Screen {
	return terminalScreen{fd: int(os.Stdout.Fd())}
}

// Configure records the geometry, and whether the status line is shown.
func (tw *TermboxWindow) Configure(geom display.Geometry, statusLine bool) {
	tw.mu.Lock()
	tw.geom = geom
	tw.statusLine = statusLine
	tw.mu.Unlock()

	tw.draw()
}

// SetStatus updates the status line.
func (tw *TermboxWindow) SetStatus(text string) {
	tw.mu.Lock()
	tw.status = text
	tw.mu.Unlock()

	tw.draw()
}

// CloseRequests returns the channel close requests are delivered to.
func (tw *TermboxWindow) CloseRequests() <-chan struct{} {
	return tw.closing
}

// Confirm shows the close prompt, and waits for an answer.
func (tw *TermboxWindow) Confirm(ctx context.Context) (shutdown.Choice, error) {
	keys := make(chan rune, 1)

	tw.mu.Lock()
	if tw.hungUp {
		tw.mu.Unlock()
		return shutdown.SaveAndQuit, nil
	}
	tw.prompt = keys
	tw.mu.Unlock()
	tw.draw()

	defer func() {
		tw.mu.Lock()
		tw.prompt = nil
		tw.mu.Unlock()
		tw.draw()
	}()

	for {
		select {
		case <-ctx.Done():
			return shutdown.Continue, ctx.Err()
		case r := <-keys:
			if choice, ok := choiceForKey(r); ok {
				return choice, nil
			}
		}
	}
}

// choiceForKey maps a key of the close prompt to a choice.
func choiceForKey(r rune) (shutdown.Choice, bool) {
	switch r {
	case 'c', 'C', rune(termbox.KeyEsc):
		return shutdown.Continue, true
	case 's', 'S':
		return shutdown.SaveAndQuit, true
	case 'q', 'Q':
		return shutdown.QuitWithoutSaving, true
	}
	return shutdown.Continue, false
}

// draw renders the window.
func (tw *TermboxWindow) draw() {
	tw.drawMu.Lock()
	defer tw.drawMu.Unlock()

	if !termbox.IsInit {
		return
	}

	tw.mu.Lock()
	geom := tw.geom
	status := tw.status
	statusLine := tw.statusLine
	prompting := tw.prompt != nil
	tw.mu.Unlock()

	width, height := termbox.Size()
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)

	title := fmt.Sprintf("snapvm %dx%d", geom.Width, geom.Height)
	if geom.FullScreen {
		title += " (fullscreen)"
	}
	putText(0, 0, width, title, termbox.AttrBold)

	if prompting {
		putText(0, height/2, width, closePrompt, termbox.AttrReverse)
	}
	if statusLine && height > 1 {
		putText(0, height-1, width, status, termbox.ColorDefault)
	}
	termbox.Flush()
}

// putText writes text at the given position, truncating it to fit.
func putText(x, y, width int, text string, attr termbox.Attribute) {
	text = runewidth.Truncate(text, width-x, "…")
	for _, r := range text {
		termbox.SetCell(x, y, r, attr, termbox.ColorDefault)
		x += runewidth.RuneWidth(r)
	}
}

// terminalScreen reports the size of the terminal, in pixels.
type terminalScreen struct {
	fd int
}

// FullScreenSupported is true when we're attached to a terminal.
func (ts terminalScreen) FullScreenSupported() bool {
	return term.IsTerminal(ts.fd)
}

// Size returns the size of the terminal in pixels.
//
// Terminals which don't report their size in pixels are assumed to use
// an 8x16 font.
func (ts terminalScreen) Size() (int, int) {
	w, h, err := pixelSize(ts.fd)
	if err == nil && w > 0 && h > 0 {
		return w, h
	}

	cols, rows, err := term.GetSize(ts.fd)
	if err != nil {
		return 0, 0
	}
	return cols * 8, rows * 16
}

// init registers our driver, by name.
func init() {
	Register(TermName, func() Window {
		return new(TermboxWindow)
	})
}
