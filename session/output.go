package session

import (
	"bytes"
	"io"
	"sync"
)

// heldWriter passes writes through, except while it is held.  Output
// written while held is kept until release, so that messages printed
// while a full-screen window owns the terminal aren't lost.
type heldWriter struct {
	mu   sync.Mutex
	out  io.Writer
	held bool
	buf  bytes.Buffer
}

// Write implements io.Writer.
func (h *heldWriter) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.held {
		return h.buf.Write(p)
	}
	return h.out.Write(p)
}

// hold starts buffering.
func (h *heldWriter) hold() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.held = true
}

// release writes anything buffered, and stops buffering.
func (h *heldWriter) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.held = false
	if h.buf.Len() > 0 {
		h.out.Write(h.buf.Bytes())
		h.buf.Reset()
	}
}
