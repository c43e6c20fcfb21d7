// Package disk implements the sector-addressed disk pack which images
// may use for persistent storage.
//
// A pack is held entirely in memory.  Writes mark the sectors they touch
// as dirty, and it is the job of the backing store which loaded the pack
// to write the dirty sectors back out when asked to.
package disk

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// SectorSize is the number of bytes in each sector.
const SectorSize = 256

// ErrSectorRange is returned when a sector outside the pack is addressed.
var ErrSectorRange = errors.New("sector out of range")

// Pack holds our state.
type Pack struct {
	mu sync.Mutex

	// sectors holds the contents of the pack.
	sectors [][]byte

	// dirty records the sectors changed since they were last saved.
	dirty map[int]struct{}
}

// New returns an empty pack with the given number of sectors.
func New(count int) *Pack {
	p := &Pack{
		sectors: make([][]byte, count),
		dirty:   make(map[int]struct{}),
	}
	for i := range p.sectors {
		p.sectors[i] = make([]byte, SectorSize)
	}
	return p
}

// FromBytes returns a pack holding the given contents.
//
// A trailing partial sector is padded with zeros.
func FromBytes(data []byte) *Pack {
	count := (len(data) + SectorSize - 1) / SectorSize
	p := New(count)
	for i := range p.sectors {
		copy(p.sectors[i], data[i*SectorSize:])
	}
	return p
}

// Sectors returns the number of sectors in the pack.
func (p *Pack) Sectors() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.sectors)
}

// Read returns a copy of the given sector.
func (p *Pack) Read(n int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n < 0 || n >= len(p.sectors) {
		return nil, fmt.Errorf("read sector %d: %w", n, ErrSectorRange)
	}

	out := make([]byte, SectorSize)
	copy(out, p.sectors[n])
	return out, nil
}

// Write replaces the contents of the given sector, and marks it dirty.
//
// Short data is padded with zeros, long data is truncated.
func (p *Pack) Write(n int, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n < 0 || n >= len(p.sectors) {
		return fmt.Errorf("write sector %d: %w", n, ErrSectorRange)
	}

	sec := make([]byte, SectorSize)
	copy(sec, data)
	p.sectors[n] = sec
	p.dirty[n] = struct{}{}
	return nil
}

// Load sets the contents of a sector without marking it dirty, this is
// used by backing stores when populating a pack.
func (p *Pack) Load(n int, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n < 0 || n >= len(p.sectors) {
		return fmt.Errorf("load sector %d: %w", n, ErrSectorRange)
	}
	copy(p.sectors[n], data)
	return nil
}

// Changes returns the dirty sectors, in ascending order, along with a
// copy of their contents.
func (p *Pack) Changes() ([]int, [][]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]int, 0, len(p.dirty))
	for n := range p.dirty {
		ids = append(ids, n)
	}
	sort.Ints(ids)

	data := make([][]byte, len(ids))
	for i, n := range ids {
		data[i] = make([]byte, SectorSize)
		copy(data[i], p.sectors[n])
	}
	return ids, data
}

// MarkClean forgets that the given sectors were changed.
//
// A sector which was written again after its contents were fetched via
// Changes will be cleaned too, so callers should save and clean without
// letting writers in between.
func (p *Pack) MarkClean(ids []int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, n := range ids {
		delete(p.dirty, n)
	}
}

// Bytes returns the whole contents of the pack.
func (p *Pack) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, 0, len(p.sectors)*SectorSize)
	for _, s := range p.sectors {
		out = append(out, s...)
	}
	return out
}
