//go:build !unix

package ui

import "errors"

// pixelSize isn't available, the caller falls back to character cells.
func pixelSize(fd int) (int, int, error) {
	return 0, 0, errors.New("pixel size unavailable")
}
