package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend writes each collection to <dir>/<name>.json. Saves go to a
// temp file in the same directory which is synced and renamed over the
// target, so readers never observe a half-written collection.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

func (f *FileBackend) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, loadError(name, err)
	}
	return data, nil
}

func (f *FileBackend) Save(_ context.Context, name string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, "."+name+"-*.tmp")
	if err != nil {
		return saveError(name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return saveError(name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return saveError(name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return saveError(name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return saveError(name, err)
	}
	if err := os.Rename(tmpName, f.path(name)); err != nil {
		cleanup()
		return saveError(name, err)
	}
	return nil
}
