package memory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestMemoryTrivial just does basic get/set tests
func TestMemoryTrivial(t *testing.T) {

	mem := new(Memory)

	// Set
	mem.Set(0x00, 0x01)
	mem.Set(0x01, 0x02)

	// Get
	if mem.Get(0x00) != 0x01 {
		t.Fatalf("failed to get expected result")
	}
	if mem.Get(0x01) != 0x02 {
		t.Fatalf("failed to get expected result")
	}
	// GetU16
	if mem.GetU16(0x00) != 0x0201 {
		t.Fatalf("failed to get expected result")
	}

	// Fill with 0xCD
	mem.FillRange(0x00, 0xFFFF, 0xCD)

	if mem.Get(0xFFFE) != 0xCD {
		t.Fatalf("failed to get expected result")
	}

	// Get a random range
	out := mem.GetRange(0x300, 0x00FF)
	for _, d := range out {
		if d != 0xCD {
			t.Fatalf("wrong result in GetRange")
		}
	}

	// Put a (small) range
	out = []uint8{0x01, 0x02, 0x03}
	mem.SetRange(0x0000, out[:]...)

	if mem.GetU16(0x02) != 0xCD03 {
		t.Fatalf("failed to get expected result")
	}
}

// TestImageRoundTrip ensures an image survives a save and a load.
func TestImageRoundTrip(t *testing.T) {

	path := filepath.Join(t.TempDir(), "test.im")

	mem := new(Memory)
	mem.SetRange(0x0100, []byte("Steve Kemp")...)
	mem.SetContext(Context{PC: 0x0100, SP: 0xFFF0, HL: 0x1234})

	err := mem.SaveImage(path)
	if err != nil {
		t.Fatalf("failed to save image: %s", err)
	}
	if mem.Path() != path {
		t.Fatalf("path not recorded")
	}

	other := new(Memory)
	other.Set(0x0000, 0xFF)
	err = other.LoadImage(path)
	if err != nil {
		t.Fatalf("failed to load image: %s", err)
	}

	if other.Get(0x0000) != 0x00 {
		t.Fatalf("previous contents survived the load")
	}
	x := "Steve Kemp"
	for i, c := range x {
		chr := other.Get(0x0100 + uint16(i))
		if string(chr) != string(c) {
			t.Fatalf("RAM had wrong contents at %d: %c != %c\n", i, c, chr)
		}
	}
	if other.Context() != mem.Context() {
		t.Fatalf("context mismatch %v != %v", other.Context(), mem.Context())
	}
}

// TestSavePermissions ensures a new image is readable, and saving over
// an image keeps its permissions.
func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.im")

	mem := new(Memory)
	if err := mem.SaveImage(path); err != nil {
		t.Fatalf("failed to save image: %s", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat image: %s", err)
	}
	if fi.Mode().Perm() != 0644 {
		t.Fatalf("unexpected mode %v", fi.Mode().Perm())
	}

	if err = os.Chmod(path, 0640); err != nil {
		t.Fatalf("failed to chmod: %s", err)
	}
	if err = mem.SaveImage(path); err != nil {
		t.Fatalf("failed to save image: %s", err)
	}
	fi, err = os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat image: %s", err)
	}
	if fi.Mode().Perm() != 0640 {
		t.Fatalf("permissions weren't kept, got %v", fi.Mode().Perm())
	}
}

// TestSaveDefaults ensures an empty name saves to the original location.
func TestSaveDefaults(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "orig.im")

	err := NewImage(path, 0x0100, []byte{0x76})
	if err != nil {
		t.Fatalf("failed to create image: %s", err)
	}

	mem := new(Memory)
	if err = mem.LoadImage(path); err != nil {
		t.Fatalf("failed to load image: %s", err)
	}
	if mem.Context().PC != 0x0100 {
		t.Fatalf("wrong start address")
	}

	mem.Set(0x0200, 0x42)
	if err = mem.SaveImage(""); err != nil {
		t.Fatalf("failed to save image: %s", err)
	}

	again := new(Memory)
	if err = again.LoadImage(path); err != nil {
		t.Fatalf("failed to reload image: %s", err)
	}
	if again.Get(0x0200) != 0x42 {
		t.Fatalf("changes were not saved in place")
	}

	// Nothing but the image should be left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

// TestDefaultImage ensures memory which was never loaded saves somewhere.
func TestDefaultImage(t *testing.T) {
	t.Chdir(t.TempDir())

	mem := new(Memory)
	if err := mem.SaveImage(""); err != nil {
		t.Fatalf("failed to save: %s", err)
	}
	if _, err := os.Stat(DefaultImage); err != nil {
		t.Fatalf("default image not written: %s", err)
	}
}

// TestLoadErrors covers the ways loading can fail.
func TestLoadErrors(t *testing.T) {

	mem := new(Memory)

	err := mem.LoadImage("/this/file-does/not/exist")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	bogus := filepath.Join(t.TempDir(), "bogus.im")
	if err = os.WriteFile(bogus, []byte("Steve Kemp"), 0o644); err != nil {
		t.Fatalf("failed to write file")
	}
	err = mem.LoadImage(bogus)
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected not-image error, got %v", err)
	}
}
