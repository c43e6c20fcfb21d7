package engine

import (
	"fmt"
	"io"
	"time"
)

// Stats holds counters about the work the engine has done.
type Stats struct {
	Runs          int
	Elapsed       time.Duration
	PortIn        int
	PortOut       int
	StatusUpdates int
	Snapshots     int
	SectorReads   int
	SectorWrites  int
}

// Stats returns a copy of the counters.
//
// It may be called while the engine is running, but the time spent in a
// run is only counted once that run has returned.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	return e.stats
}

// count updates the counters.
func (e *Engine) count(fn func(s *Stats)) {
	e.statsMu.Lock()
	fn(&e.stats)
	e.statsMu.Unlock()
}

// PrintStats writes a summary of the counters.
func (e *Engine) PrintStats(w io.Writer) {
	s := e.Stats()
	fmt.Fprintf(w, "   runs:            %d\n", s.Runs)
	fmt.Fprintf(w, "   elapsed:         %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "   port reads:      %d\n", s.PortIn)
	fmt.Fprintf(w, "   port writes:     %d\n", s.PortOut)
	fmt.Fprintf(w, "   status updates:  %d\n", s.StatusUpdates)
	fmt.Fprintf(w, "   snapshots:       %d\n", s.Snapshots)
	fmt.Fprintf(w, "   sector reads:    %d\n", s.SectorReads)
	fmt.Fprintf(w, "   sector writes:   %d\n", s.SectorWrites)
}
