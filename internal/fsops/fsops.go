// Package fsops holds the small filesystem operations the CLI needs around
// the core encode/decode walk: listing cover images in a deterministic
// order, clearing a directory between runs, and writing files durably.
//
// Adapted from the teacher's diskimage helpers (EnsureDir/Stat/atomic write
// are direct descendants of that package's on-disk housekeeping), trimmed of
// the WiCOS64 sandbox-path resolution this tool has no use for — there is no
// case-insensitive virtual filesystem here, just a local directory tree.
package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pixsafe/pixsafe/internal/stegoerr"
)

// StatInfo summarizes a path the way the CLI reports it back to the user.
type StatInfo struct {
	Exists bool
	IsDir  bool
	Size   uint64
}

// Stat reports whether p exists and, if so, its kind and size.
func Stat(p string) (StatInfo, error) {
	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StatInfo{Exists: false}, nil
		}
		return StatInfo{}, err
	}
	size := uint64(0)
	if !fi.IsDir() {
		size = uint64(fi.Size())
	}
	return StatInfo{Exists: true, IsDir: fi.IsDir(), Size: size}, nil
}

// EnsureDir ensures a directory exists, creating parents as needed.
func EnsureDir(p string) error {
	return os.MkdirAll(p, 0o755)
}

// ListPNGsSorted lists the .png files directly inside dir in lexicographic
// ascending order by filename, the deterministic cover-image listing order
// the encoder and decoder must agree on. Any non-directory entry that is
// not a .png file is fatal: callers are expected to have already purged
// hidden non-PNG clutter with PurgeHiddenNonPNG, so anything left over is a
// photos directory that genuinely contains something it shouldn't.
func ListPNGsSorted(dir string) ([]string, error) {
	const op = "fsops.ListPNGsSorted"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindInvalidInputPath, op, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			return nil, stegoerr.New(stegoerr.KindUnsupportedImage, op, "non-PNG file %q found among photos", e.Name())
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// PurgeDir removes every entry directly inside dir, recreating dir if it did
// not already exist. Encode uses it on its output directory and Decode on
// its extraction directory to clear data left over from a previous run,
// mirroring the original tool's practice of starting each run from a clean
// output directory.
func PurgeDir(dir string) error {
	const op = "fsops.PurgeDir"
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return EnsureDir(dir)
		}
		return stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return stegoerr.Wrap(stegoerr.KindIOError, op, err)
		}
	}
	return nil
}

// PurgeHiddenNonPNG removes every hidden (dotfile) entry inside dir whose
// name does not carry a .png extension — OS-generated clutter like
// .DS_Store that the encoder and decoder must not trip over. It is silent
// about these because the user never placed them there on purpose; any
// other, non-hidden non-PNG entry is left alone for ListPNGsSorted to
// reject as fatal.
func PurgeHiddenNonPNG(dir string) error {
	const op = "fsops.PurgeHiddenNonPNG"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".png") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return stegoerr.Wrap(stegoerr.KindIOError, op, err)
		}
	}
	return nil
}

// WriteFileAtomic writes data to path by writing a temp file in the same
// directory and renaming it over the target, so a crash mid-write never
// leaves a half-written cover image behind.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	const op = "fsops.WriteFileAtomic"
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pixsafe-*")
	if err != nil {
		return stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	if err := tmp.Sync(); err != nil {
		return stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	if err := tmp.Close(); err != nil {
		return stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	_ = os.Chmod(tmpName, perm)

	if err := os.Rename(tmpName, path); err != nil {
		return stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	ok = true
	return nil
}
