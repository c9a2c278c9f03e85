package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// ErrCancelled is returned by calls made after RemoveIfNotClosed
var ErrCancelled = errors.New("cancelled")

// ensure we implement desired interface
var _ io.WriteCloser = &File{}

// File writes a whole-file replacement for a destination path. Data
// goes to a temporary file in the same directory; Close syncs the
// temporary file and renames it over the destination. Same directory
// matters: rename is only atomic within one filesystem. Until a
// successful Close the destination is completely untouched.
type File struct {
	dstPath string
	dir     string
	tmpPath string
	tmpFile *os.File
	err     error
}

// New creates a File that will replace the file at path on Close.
func New(path string) (*File, error) {
	dir, name := filepath.Split(path)
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	// this fails early if the directory doesn't exist, no point
	// writing data we could never rename into place
	tmpFile, err := os.CreateTemp(dir, name)
	if err != nil {
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		tmpPath: tmpFile.Name(),
		tmpFile: tmpFile,
	}, nil
}

// remember the first error and clean up the temp file
func (f *File) handleError(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

// Write writes data to the temporary file.
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.handleError(err)
}

// RemoveIfNotClosed deletes the temporary file if Close wasn't called
// yet; the destination is not touched. Use with defer so an early
// error return or a panic before Close doesn't leave the temporary
// file behind. After Close it's a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil || f.tmpFile == nil {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs the temporary file and renames it over the destination.
// If any earlier call failed, Close deletes the temporary file
// instead and returns the first error. Can be called multiple times
// to make it easier to use via defer.
func (f *File) Close() error {
	if f.tmpFile == nil {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}
	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = err == nil
	}
	if err != nil {
		f.err = err
		return err
	}

	// sync the directory so the rename itself survives a crash,
	// errors here are a nice to have, not a must have
	if fdir, err := os.Open(f.dir); err == nil {
		_ = fdir.Sync()
		_ = fdir.Close()
	}
	return nil
}
