package ui

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/skx/snapvm/display"
	"github.com/skx/snapvm/shutdown"
)

// TestName ensures we can lookup a driver by name
func TestName(t *testing.T) {

	valid := []string{"term", "headless", "HEADLESS"}

	for _, nm := range valid {

		d, e := New(nm)
		if e != nil {
			t.Fatalf("failed to lookup driver by name %s:%s", nm, e)
		}
		if d.GetName() == "" {
			t.Fatalf("driver %s has no name", nm)
		}
	}

	// Lookup a driver that wont exist
	_, err := New("foo.bar.ba")
	if err == nil {
		t.Fatalf("we got a driver that shouldn't exist")
	}
}

// TestDrivers ensures the driver list is sorted, and complete.
func TestDrivers(t *testing.T) {
	d := Drivers()
	if len(d) != 2 || d[0] != "headless" || d[1] != "term" {
		t.Fatalf("unexpected drivers %v", d)
	}

	// Under `go test` we're not attached to a terminal.
	if Default() != HeadlessName && Default() != TermName {
		t.Fatalf("unexpected default %s", Default())
	}
}

// TestHeadlessStatus ensures the status readout is only written when
// enabled.
func TestHeadlessStatus(t *testing.T) {
	out := new(bytes.Buffer)
	h := NewHeadless(out)

	h.SetStatus("hidden")
	h.Configure(display.Default, true)
	h.SetStatus("shown")

	if out.String() != "status: shown\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
	if h.Screen() != nil {
		t.Fatalf("headless driver has a screen")
	}
}

// TestHeadlessSignal ensures SIGINT becomes a close request.
func TestHeadlessSignal(t *testing.T) {
	h := NewHeadless(nil)
	if err := h.Setup(); err != nil {
		t.Fatalf("setup failed: %s", err)
	}
	defer h.TearDown()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("failed to find ourselves: %s", err)
	}
	if err = p.Signal(os.Interrupt); err != nil {
		t.Skipf("can't signal ourselves: %s", err)
	}

	select {
	case <-h.CloseRequests():
	case <-time.After(5 * time.Second):
		t.Fatalf("no close request was received")
	}

	choice, err := h.Confirm(context.Background())
	if err != nil || choice != shutdown.SaveAndQuit {
		t.Fatalf("unexpected choice %s %v", choice, err)
	}

	// TearDown is safe to repeat.
	h.TearDown()
}

// TestHeadlessConfirmCanceled ensures a canceled prompt continues.
func TestHeadlessConfirmCanceled(t *testing.T) {
	h := NewHeadless(nil)
	h.Choice = shutdown.QuitWithoutSaving

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	choice, err := h.Confirm(ctx)
	if err == nil || choice != shutdown.Continue {
		t.Fatalf("unexpected choice %s %v", choice, err)
	}
}

// TestChoiceForKey covers the keys of the close prompt.
func TestChoiceForKey(t *testing.T) {
	tests := []struct {
		key    rune
		choice shutdown.Choice
		ok     bool
	}{
		{'c', shutdown.Continue, true},
		{'S', shutdown.SaveAndQuit, true},
		{'q', shutdown.QuitWithoutSaving, true},
		{'x', shutdown.Continue, false},
	}

	for _, tst := range tests {
		choice, ok := choiceForKey(tst.key)
		if choice != tst.choice || ok != tst.ok {
			t.Fatalf("key %c: got %s/%t", tst.key, choice, ok)
		}
	}
}

// TestTermHangUp ensures a hang-up saves the disk, without asking.
func TestTermHangUp(t *testing.T) {
	tw := &TermboxWindow{closing: make(chan struct{}, 1)}
	tw.hangUp()

	select {
	case <-tw.CloseRequests():
	default:
		t.Fatalf("no close request was raised")
	}

	choice, err := tw.Confirm(context.Background())
	if err != nil || choice != shutdown.SaveAndQuit {
		t.Fatalf("unexpected choice %s %v", choice, err)
	}
}

// TestTermHangUpDuringPrompt ensures a hang-up answers a pending prompt.
func TestTermHangUpDuringPrompt(t *testing.T) {
	tw := &TermboxWindow{closing: make(chan struct{}, 1)}

	result := make(chan shutdown.Choice, 1)
	go func() {
		choice, _ := tw.Confirm(context.Background())
		result <- choice
	}()

	// Wait for the prompt to be shown.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		tw.mu.Lock()
		shown := tw.prompt != nil
		tw.mu.Unlock()
		if shown {
			break
		}
		time.Sleep(time.Millisecond)
	}
	tw.hangUp()

	select {
	case choice := <-result:
		if choice != shutdown.SaveAndQuit {
			t.Fatalf("unexpected choice %s", choice)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("prompt wasn't answered")
	}
}
