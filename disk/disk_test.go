package disk

import (
	"bytes"
	"errors"
	"testing"
)

// TestReadWrite ensures sectors can be written and read back.
func TestReadWrite(t *testing.T) {

	p := New(4)
	if p.Sectors() != 4 {
		t.Fatalf("wrong sector count %d", p.Sectors())
	}

	err := p.Write(2, []byte("steve"))
	if err != nil {
		t.Fatalf("failed to write: %s", err)
	}

	data, err := p.Read(2)
	if err != nil {
		t.Fatalf("failed to read: %s", err)
	}
	if len(data) != SectorSize {
		t.Fatalf("sector has wrong size %d", len(data))
	}
	if !bytes.HasPrefix(data, []byte("steve")) || data[5] != 0x00 {
		t.Fatalf("sector has wrong contents")
	}

	// Changing what we read must not change the pack
	data[0] = 'S'
	again, _ := p.Read(2)
	if again[0] != 's' {
		t.Fatalf("read returned a reference to the pack")
	}
}

// TestRange ensures out of range sectors are rejected.
func TestRange(t *testing.T) {

	p := New(1)

	for _, n := range []int{-1, 1, 100} {
		if _, err := p.Read(n); !errors.Is(err, ErrSectorRange) {
			t.Fatalf("read of sector %d: unexpected error %v", n, err)
		}
		if err := p.Write(n, nil); !errors.Is(err, ErrSectorRange) {
			t.Fatalf("write of sector %d: unexpected error %v", n, err)
		}
		if err := p.Load(n, nil); !errors.Is(err, ErrSectorRange) {
			t.Fatalf("load of sector %d: unexpected error %v", n, err)
		}
	}
}

// TestDirtyTracking ensures only written sectors are reported as changed.
func TestDirtyTracking(t *testing.T) {

	p := FromBytes(make([]byte, SectorSize*3+1))
	if p.Sectors() != 4 {
		t.Fatalf("partial sector wasn't padded: %d", p.Sectors())
	}

	if err := p.Load(0, []byte{1}); err != nil {
		t.Fatalf("load failed: %s", err)
	}
	ids, _ := p.Changes()
	if len(ids) != 0 {
		t.Fatalf("load marked a sector dirty")
	}

	_ = p.Write(3, []byte{3})
	_ = p.Write(1, []byte{1})

	ids, data := p.Changes()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected changes %v", ids)
	}
	if data[0][0] != 1 || data[1][0] != 3 {
		t.Fatalf("unexpected change contents")
	}

	p.MarkClean(ids)
	ids, _ = p.Changes()
	if len(ids) != 0 {
		t.Fatalf("changes survived MarkClean: %v", ids)
	}

	all := p.Bytes()
	if len(all) != 4*SectorSize || all[0] != 1 || all[SectorSize] != 1 || all[3*SectorSize] != 3 {
		t.Fatalf("Bytes returned the wrong contents")
	}
}
