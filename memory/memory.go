// Package memory provides the 64k of RAM within which the virtual
// machine executes, along with the loading and saving of images.
//
// An image is a snapshot of the whole of memory, plus the context the
// machine was suspended in when the snapshot was taken.  Images are
// stored as CBOR.
package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// Size is the number of bytes of RAM the machine may address.
const Size = 65536

// Magic identifies an image file.
const Magic = "snapvm-image"

// Version is the version of the image format we write.
const Version = 1

// DefaultImage is used as the snapshot location when an image was
// never loaded from, or saved to, a named file.
const DefaultImage = "snapshot.im"

var (
	// ErrNotImage is returned when a file isn't a valid image.
	ErrNotImage = errors.New("not an image file")

	// ErrImageTooLarge is returned when an image holds more memory than
	// the machine can address.
	ErrImageTooLarge = errors.New("image exceeds 64k")
)

// Context is the suspended execution point of the machine: the register
// file at the moment a snapshot was taken.
type Context struct {
	PC uint16 `cbor:"1,keyasint"`
	SP uint16 `cbor:"2,keyasint"`
	AF uint16 `cbor:"3,keyasint"`
	BC uint16 `cbor:"4,keyasint"`
	DE uint16 `cbor:"5,keyasint"`
	HL uint16 `cbor:"6,keyasint"`
	IX uint16 `cbor:"7,keyasint"`
	IY uint16 `cbor:"8,keyasint"`
}

// image is the on-disk representation of an image.
type image struct {
	Magic   string  `cbor:"1,keyasint"`
	Version int     `cbor:"2,keyasint"`
	Context Context `cbor:"3,keyasint"`
	Memory  []byte  `cbor:"4,keyasint"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("memory: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Memory provides 64K bytes array memory.
type Memory struct {
	buf [Size]uint8

	// ctx holds the context the image was suspended in.
	ctx Context

	// path is the file the image was loaded from, or last saved to.
	path string
}

// Set sets a byte at addr of memory.
func (m *Memory) Set(addr uint16, value uint8) {
	m.buf[addr] = value
}

// Get returns a byte at addr of memory.
func (m *Memory) Get(addr uint16) uint8 {
	return m.buf[addr]
}

// GetU16 returns a word from the given address of memory.
func (m *Memory) GetU16(addr uint16) uint16 {
	l := m.Get(addr)
	h := m.Get(addr + 1)
	return (uint16(h) << 8) | uint16(l)
}

// SetRange copies bytes from the given data to the specified
// starting address in RAM.
func (m *Memory) SetRange(addr uint16, data ...uint8) {
	copy(m.buf[int(addr):], data)
}

// FillRange fills an area of memory with the given byte.
func (m *Memory) FillRange(addr uint16, size int, char uint8) {
	for size > 0 {
		m.buf[addr] = char
		addr++
		size--
	}
}

// GetRange returns the contents of a given range.
func (m *Memory) GetRange(addr uint16, size int) []uint8 {
	var ret []uint8
	for size > 0 {
		ret = append(ret, m.buf[addr])
		addr++
		size--
	}
	return ret
}

// Context returns the context the image was suspended in.
func (m *Memory) Context() Context {
	return m.ctx
}

// SetContext updates the context which will be stored by the next save.
func (m *Memory) SetContext(ctx Context) {
	m.ctx = ctx
}

// Path returns the file the image was loaded from, or last saved to.
func (m *Memory) Path() string {
	return m.path
}

// LoadImage replaces the contents of memory with the named image.
//
// Errors wrap those of the os package, so a missing file may be
// detected via errors.Is(err, os.ErrNotExist).
func (m *Memory) LoadImage(name string) error {

	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}

	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return fmt.Errorf("%s: %w: %s", name, ErrNotImage, err)
	}
	if img.Magic != Magic {
		return fmt.Errorf("%s: %w", name, ErrNotImage)
	}
	if img.Version > Version {
		return fmt.Errorf("%s: unsupported image version %d", name, img.Version)
	}
	if len(img.Memory) > Size {
		return fmt.Errorf("%s: %w", name, ErrImageTooLarge)
	}

	// Anything not stored in the image is zero.
	for i := range m.buf {
		m.buf[i] = 0x00
	}
	copy(m.buf[:], img.Memory)

	m.ctx = img.Context
	m.path = name
	return nil
}

// SaveImage writes memory, and the current context, to the named file.
//
// An empty name saves to the location the image was loaded from, or to
// DefaultImage if there is no such location.
func (m *Memory) SaveImage(name string) error {

	if name == "" {
		name = m.path
	}
	if name == "" {
		name = DefaultImage
	}

	data, err := encMode.Marshal(image{
		Magic:   Magic,
		Version: Version,
		Context: m.ctx,
		Memory:  m.buf[:],
	})
	if err != nil {
		return fmt.Errorf("encode image: %w", err)
	}

	// Write to a temporary file, then rename it into place, so a failed
	// save never destroys the previous snapshot.
	tmp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	// Keep the permissions of the image we're replacing.
	mode := os.FileMode(0644)
	if fi, err := os.Stat(name); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return err
	}

	m.path = name
	return nil
}

// NewImage writes a fresh image to the named file, with the given
// program loaded at the given address, and execution starting there.
func NewImage(name string, addr uint16, program []byte) error {
	m := new(Memory)
	m.SetRange(addr, program...)
	m.SetContext(Context{PC: addr, SP: 0xFFFE})
	return m.SaveImage(name)
}
