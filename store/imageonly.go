package store

import (
	"fmt"
	"log/slog"

	"github.com/skx/snapvm/disk"
	"github.com/skx/snapvm/memory"
)

// ImageOnlyFormat is the name of the fallback format, which has no disk.
const ImageOnlyFormat = "image-only"

// imageOnlyHandle runs the raw image without any disk emulation.
type imageOnlyHandle struct {
	mem  *memory.Memory
	opts Options
}

// OpenImageOnly loads the image without any disk.
//
// A missing image results in an error which satisfies
// errors.Is(err, os.ErrNotExist).
func OpenImageOnly(paths Paths, opts Options) (Handle, error) {
	opts = opts.withDefaults()

	mem := new(memory.Memory)
	if err := mem.LoadImage(paths.Image); err != nil {
		return nil, err
	}
	return &imageOnlyHandle{mem: mem, opts: opts}, nil
}

// Rename is ignored, snapshots always go back where they came from.
func (i *imageOnlyHandle) Rename(name string) {
	i.opts.Logger.Debug("ignoring snapshot rename",
		slog.String("format", ImageOnlyFormat),
		slog.String("name", name))
}

// SaveSnapshot writes the image back to its original location.
func (i *imageOnlyHandle) SaveSnapshot() bool {
	if err := i.mem.SaveImage(""); err != nil {
		fmt.Fprintf(i.opts.Out, "error: failed to save snapshot: %s\n", err)
		return false
	}
	fmt.Fprintf(i.opts.Out, "snapshot saved to '%s'\n", i.mem.Path())
	return true
}

// SaveDiskChanges always succeeds: no disk means no changes.
func (i *imageOnlyHandle) SaveDiskChanges() bool {
	return true
}

// Memory returns the memory the image was loaded into.
func (i *imageOnlyHandle) Memory() *memory.Memory {
	return i.mem
}

// Drive returns nil, there is no disk.
func (i *imageOnlyHandle) Drive() *disk.Pack {
	return nil
}

// Format returns the name of this format.
func (i *imageOnlyHandle) Format() string {
	return ImageOnlyFormat
}

// Close is a NOP.
func (i *imageOnlyHandle) Close() error {
	return nil
}
