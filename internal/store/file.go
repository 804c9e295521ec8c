package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/natefinch/atomic"
)

// ErrNotFound is returned (wrapped with the path) when the data file does
// not exist.
var ErrNotFound = errors.New("data file not found")

// File is the backing data file.
type File struct {
	Path string
}

// Version identifies one state of the file for change polling.
type Version struct {
	ModTime time.Time
	Size    int64
}

func (f *File) notFound() error {
	return fmt.Errorf("%w: %s", ErrNotFound, f.Path)
}

// Read returns the whole file.
func (f *File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, f.notFound()
		}
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return data, nil
}

// Write replaces the whole file atomically. The file must already exist.
func (f *File) Write(data []byte) error {
	if _, err := os.Stat(f.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f.notFound()
		}
		return err
	}
	if err := atomic.WriteFile(f.Path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	return nil
}

// Stat returns the current version of the file.
func (f *File) Stat() (Version, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Version{}, f.notFound()
		}
		return Version{}, err
	}
	return Version{ModTime: info.ModTime(), Size: info.Size()}, nil
}
