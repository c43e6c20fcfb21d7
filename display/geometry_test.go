package display

import (
	"testing"

	"github.com/skx/snapvm/config"
)

type fakeScreen struct {
	ok   bool
	w, h int
}

func (f fakeScreen) FullScreenSupported() bool { return f.ok }
func (f fakeScreen) Size() (int, int)         { return f.w, f.h }

// TestFallbackFits re-verifies the fallback geometry against the bound.
func TestFallbackFits(t *testing.T) {
	if Fallback.Words() != 72*862 {
		t.Fatalf("unexpected fallback capacity %d", Fallback.Words())
	}
	if Fallback.Words() != 62064 {
		t.Fatalf("unexpected fallback capacity %d", Fallback.Words())
	}
	if !Fallback.Fits() {
		t.Fatalf("fallback geometry doesn't fit")
	}
	if !Default.Fits() {
		t.Fatalf("default geometry doesn't fit")
	}
	if MaxWords != 65533 {
		t.Fatalf("wrong bound %d", MaxWords)
	}
}

// TestWindowed ensures windowed mode ignores the screen.
func TestWindowed(t *testing.T) {
	g := Negotiate(config.Windowed, fakeScreen{ok: true, w: 800, h: 600})
	if g != Default {
		t.Fatalf("unexpected geometry %+v", g)
	}
	if g.Width != 640 || g.Height != 480 || g.Spacing == 0 || g.FullScreen {
		t.Fatalf("unexpected geometry %+v", g)
	}
}

// TestFullScreen covers screens which do, and don't, fit.
func TestFullScreen(t *testing.T) {
	tests := []struct {
		w, h int
	}{
		{1024, 768},
		{1152, 862},
		{1280, 800},  // 80*800 = 64000
		{1366, 768},  // 86*768 = 66048
		{1920, 1080}, // 120*1080
		{2560, 1440},
		{16, 65533}, // exactly the bound
		{16, 65534}, // one word over
		{17, 32767}, // 2*32767 = 65534
		{3840, 2160},
	}

	for _, tst := range tests {
		g := Negotiate(config.FullScreen, fakeScreen{ok: true, w: tst.w, h: tst.h})

		want := WordCapacity(tst.w, tst.h)
		if want > MaxWords {
			if g.Width != 1152 || g.Height != 862 {
				t.Fatalf("%dx%d: expected fallback, got %+v", tst.w, tst.h, g)
			}
		} else if g.Width != tst.w || g.Height != tst.h {
			t.Fatalf("%dx%d: size changed to %+v", tst.w, tst.h, g)
		}

		if !g.Fits() {
			t.Fatalf("%dx%d: negotiated geometry doesn't fit: %+v", tst.w, tst.h, g)
		}
		if !g.FullScreen || g.Spacing != 0 {
			t.Fatalf("%dx%d: fullscreen not signalled: %+v", tst.w, tst.h, g)
		}
	}
}

// TestUnsupported ensures we fall back to a window when we must.
func TestUnsupported(t *testing.T) {
	screens := []Screen{
		nil,
		fakeScreen{ok: false, w: 1024, h: 768},
		fakeScreen{ok: true, w: 0, h: 768},
	}

	for _, s := range screens {
		g := Negotiate(config.FullScreen, s)
		if g != Default {
			t.Fatalf("%v: unexpected geometry %+v", s, g)
		}
	}
}
