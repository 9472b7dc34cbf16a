package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileSnapshotter keeps each key as <dir>/<key>.json.
type FileSnapshotter struct {
	dir string
}

func NewFileSnapshotter(dir string) (*FileSnapshotter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileSnapshotter{dir: dir}, nil
}

func (f *FileSnapshotter) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileSnapshotter) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write replaces the snapshot through a temp file so a crash never leaves a
// half-written history behind.
func (f *FileSnapshotter) Write(key string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path(key))
}

func (f *FileSnapshotter) Delete(key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
