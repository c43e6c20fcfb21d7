// Package store discovers, and provides access to, the backing store
// which accompanies an image.
//
// There are several formats a backing store may take, and each of them
// is implemented as a Probe.  A probe inspects the files implied by the
// name of an image, and either returns a Handle or an error explaining
// why the format isn't present.  Resolve tries the probes in priority
// order, and falls back to running the image without any disk at all.
package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/skx/snapvm/disk"
	"github.com/skx/snapvm/memory"
)

// ImageSuffix is the suffix of image files.
const ImageSuffix = ".im"

var (
	// ErrImageNotFound is returned by Resolve when the image itself
	// doesn't exist, which means there is nothing to run.
	ErrImageNotFound = errors.New("image not found")

	// ErrNoDisk is returned by a probe when the disk its format requires
	// isn't present.
	ErrNoDisk = errors.New("no disk present")
)

// Handle is the capability bundle over a concrete backing store.
//
// Exactly one handle exists per session.
type Handle interface {

	// Rename changes the name the next snapshot will be saved under.
	Rename(name string)

	// SaveSnapshot writes the memory image, returning true on success.
	SaveSnapshot() bool

	// SaveDiskChanges writes any changed disk sectors, returning true
	// on success.
	SaveDiskChanges() bool

	// Memory returns the memory the image was loaded into.
	Memory() *memory.Memory

	// Drive returns the disk pack, nil when there is no disk.
	Drive() *disk.Pack

	// Format returns the name of the format.
	Format() string

	// Close releases any resources held by the handle.
	Close() error
}

// Options are passed to every probe.
type Options struct {

	// Out receives the messages which are shown to the user when
	// snapshots and disk changes are saved.
	Out io.Writer

	// Logger is used for diagnostics.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Paths holds the names of the files an image may be made up from.
type Paths struct {

	// Image is the image file.
	Image string

	// Base is the image file without its suffix, disks are found
	// beside it.
	Base string
}

// Locate returns the paths for the given image name.
//
// The name may be given with or without the image suffix.
func Locate(name string) Paths {
	if strings.HasSuffix(strings.ToLower(name), ImageSuffix) {
		return Paths{Image: name, Base: name[:len(name)-len(ImageSuffix)]}
	}
	if _, err := os.Stat(name + ImageSuffix); err == nil {
		return Paths{Image: name + ImageSuffix, Base: name}
	}
	return Paths{Image: name, Base: name}
}

// Opener is the signature of a function which attempts to open one
// format of backing store.
type Opener func(paths Paths, opts Options) (Handle, error)

// Probe names a format, and the function which opens it.
type Probe struct {
	Name string
	Open Opener
}

// DefaultProbes lists the disk-backed formats, richest first.
var DefaultProbes = []Probe{
	{Name: AltoFormat, Open: OpenAlto},
	{Name: TajoFormat, Open: OpenTajo},
}

// Resolve returns the handle for the first format which is present for
// the given image.
//
// Failures are collected, and only shown if no probe succeeds.  In that
// case the image is opened without a disk.  If the image cannot be found
// ErrImageNotFound is returned, and the reason has already been shown.
func Resolve(name string, opts Options, probes ...Probe) (Handle, error) {
	opts = opts.withDefaults()
	paths := Locate(name)

	var messages strings.Builder
	for _, p := range probes {

		h, err := p.Open(paths, opts)
		if err == nil {
			opts.Logger.Info("backing store resolved",
				slog.String("format", p.Name),
				slog.String("image", paths.Image))
			return h, nil
		}

		opts.Logger.Debug("probe failed",
			slog.String("format", p.Name),
			slog.String("error", err.Error()))
		fmt.Fprintf(&messages, "%s: %s\n", p.Name, err)
	}

	fmt.Fprint(opts.Out, messages.String())

	h, err := OpenImageOnly(paths, opts)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}

	opts.Logger.Info("backing store resolved",
		slog.String("format", ImageOnlyFormat),
		slog.String("image", paths.Image))
	return h, nil
}

// loadImage checks the image exists, and loads it into fresh memory.
func loadImage(paths Paths) (*memory.Memory, error) {
	if _, err := os.Stat(paths.Image); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("image file '%s' not found", paths.Image)
		}
		return nil, err
	}

	mem := new(memory.Memory)
	if err := mem.LoadImage(paths.Image); err != nil {
		return nil, err
	}
	return mem, nil
}

// snapshotter provides the snapshot half of a handle, which is common to
// the disk-backed formats.
type snapshotter struct {
	mem    *memory.Memory
	paths  Paths
	target string
	opts   Options
}

// Rename changes the name the next snapshot is saved under.
//
// Relative names are relative to the directory holding the image.
func (s *snapshotter) Rename(name string) {
	if !strings.HasSuffix(strings.ToLower(name), ImageSuffix) {
		name += ImageSuffix
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(filepath.Dir(s.paths.Image), name)
	}
	s.target = name
}

// SaveSnapshot writes memory to the snapshot target.
func (s *snapshotter) SaveSnapshot() bool {
	target := s.target
	if target == "" {
		target = s.paths.Image
	}

	if err := s.mem.SaveImage(target); err != nil {
		fmt.Fprintf(s.opts.Out, "error: failed to save snapshot to '%s': %s\n", target, err)
		s.opts.Logger.Error("snapshot failed",
			slog.String("path", target),
			slog.String("error", err.Error()))
		return false
	}

	fmt.Fprintf(s.opts.Out, "snapshot saved to '%s'\n", target)
	return true
}

// Memory returns the memory the image was loaded into.
func (s *snapshotter) Memory() *memory.Memory {
	return s.mem
}
