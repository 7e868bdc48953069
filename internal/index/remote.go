package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/logsift/internal/cloud"
)

// Push uploads the index persisted at path to key.
func Push(ctx context.Context, store cloud.Store, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return store.Put(ctx, key, f, info.Size())
}

// Pull downloads the index at key and installs it at path. The download is
// checked to be a readable index before it replaces the local one.
func Pull(ctx context.Context, store cloud.Store, key, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.pull")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := store.Get(ctx, key, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if _, err := Load(tmpPath); err != nil {
		return fmt.Errorf("remote %s: %w", key, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod index: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}
