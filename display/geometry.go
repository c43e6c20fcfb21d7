// Package display negotiates the geometry of the display surface.
//
// The display of the virtual machine is a single word-addressed array
// object.  The machine has a 16-bit address space, and every object
// needs two words of header, so a display bitmap may never be larger
// than 65533 words.  Whatever size the physical screen reports, the
// geometry we return always satisfies that bound.
package display

import "github.com/skx/snapvm/config"

const (
	// MaxWords is the largest display bitmap, in 16-bit words.
	MaxWords = 0xFFFF - 2

	// WindowedSpacing is the gap between the display and the status
	// line, when running in a window.
	WindowedSpacing = 2
)

var (
	// Default is the geometry used when running in a window.
	Default = Geometry{Width: 640, Height: 480, Spacing: WindowedSpacing}

	// Fallback is used when the physical screen is too large for the
	// machine to address.
	Fallback = Geometry{Width: 1152, Height: 862, FullScreen: true}
)

// Geometry is the size of the display, in pixels.
type Geometry struct {
	Width  int
	Height int

	// Spacing is a hint to the windowing layer, zero in fullscreen mode.
	Spacing int

	// FullScreen is set when the physical screen was taken over.
	FullScreen bool
}

// Words returns the number of 16-bit words a bitmap of this size needs.
func (g Geometry) Words() int {
	return WordCapacity(g.Width, g.Height)
}

// Fits reports whether the geometry can be addressed by the machine.
func (g Geometry) Fits() bool {
	return g.Width > 0 && g.Height > 0 && g.Words() <= MaxWords
}

// WordCapacity returns ceil(width/16)*height.
func WordCapacity(width, height int) int {
	return ((width + 15) / 16) * height
}

// Screen is implemented by windowing drivers which can take over the
// whole of a physical screen.
type Screen interface {

	// FullScreenSupported reports whether fullscreen mode is possible.
	FullScreenSupported() bool

	// Size returns the dimensions of the screen, in pixels.
	Size() (width int, height int)
}

// Negotiate returns the geometry to use for the given mode.
//
// If fullscreen mode is requested but the screen cannot support it we
// fall back to the windowed geometry.
func Negotiate(mode config.DisplayMode, screen Screen) Geometry {
	if mode != config.FullScreen || screen == nil || !screen.FullScreenSupported() {
		return Default
	}

	w, h := screen.Size()
	if w <= 0 || h <= 0 {
		return Default
	}

	g := Geometry{Width: w, Height: h, FullScreen: true}
	if !g.Fits() {
		return Fallback
	}
	return g
}
