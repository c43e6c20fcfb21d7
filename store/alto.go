package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/skx/snapvm/disk"
)

// AltoFormat is the name of the raw disk pack format.
const AltoFormat = "alto"

// AltoSuffix is the suffix of the disk file used by the alto format.
const AltoSuffix = ".dsk"

// altoHandle keeps the disk as a raw file of sectors beside the image.
type altoHandle struct {
	snapshotter

	// path of the disk file.
	path string

	pack *disk.Pack
}

// OpenAlto opens an image which has a raw disk pack beside it.
func OpenAlto(paths Paths, opts Options) (Handle, error) {
	opts = opts.withDefaults()
	path := paths.Base + AltoSuffix

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("disk '%s': %w", path, ErrNoDisk)
		}
		return nil, err
	}
	if info.IsDir() || info.Size() == 0 || info.Size()%disk.SectorSize != 0 {
		return nil, fmt.Errorf("disk '%s' is not a multiple of %d bytes", path, disk.SectorSize)
	}

	mem, err := loadImage(paths)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &altoHandle{
		snapshotter: snapshotter{mem: mem, paths: paths, opts: opts},
		path:        path,
		pack:        disk.FromBytes(data),
	}, nil
}

// SaveDiskChanges writes the changed sectors into the disk file, in place.
func (a *altoHandle) SaveDiskChanges() bool {
	ids, data := a.pack.Changes()
	if len(ids) == 0 {
		return true
	}

	err := a.write(ids, data)
	if err != nil {
		fmt.Fprintf(a.opts.Out, "error: failed to save disk changes to '%s': %s\n", a.path, err)
		a.opts.Logger.Error("saving disk changes failed",
			slog.String("format", AltoFormat),
			slog.String("path", a.path),
			slog.String("error", err.Error()))
		return false
	}

	a.pack.MarkClean(ids)
	fmt.Fprintf(a.opts.Out, "saved %d changed sector(s) to '%s'\n", len(ids), a.path)
	return true
}

func (a *altoHandle) write(ids []int, data [][]byte) error {
	f, err := os.OpenFile(a.path, os.O_RDWR, 0)
	if err != nil {
		return err
	}

	for i, n := range ids {
		if _, err = f.WriteAt(data[i], int64(n)*disk.SectorSize); err != nil {
			f.Close()
			return err
		}
	}

	if err = f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Drive returns the disk pack.
func (a *altoHandle) Drive() *disk.Pack {
	return a.pack
}

// Format returns the name of this format.
func (a *altoHandle) Format() string {
	return AltoFormat
}

// Close is a NOP, the disk file is only open while saving.
func (a *altoHandle) Close() error {
	return nil
}
