//go:build unix

package ui

import "golang.org/x/sys/unix"

// pixelSize returns the size of the terminal in pixels, as reported by
// the kernel.
func pixelSize(fd int) (int, int, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Xpixel), int(ws.Ypixel), nil
}
