package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// FileCache implements Service as one file per key in a directory. It is the
// local durable store for single-user deployments. Expiration is ignored.
type FileCache struct {
	dir  string
	perm os.FileMode
}

// NewFileCache creates the directory if needed.
func NewFileCache(opts ...FileOption) (*FileCache, error) {
	cfg := &FileConfig{
		Dir:  "data",
		Perm: 0o644,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: cfg.Dir, perm: cfg.Perm}, nil
}

// Dir returns the backing directory.
func (fc *FileCache) Dir() string { return fc.dir }

// Set writes to a temp file and renames it over the target, so a crash leaves
// either the old or the new value on disk.
func (fc *FileCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	path := fc.path(key)
	tmp, err := os.CreateTemp(fc.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, fc.perm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (fc *FileCache) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(fc.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (fc *FileCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := os.Remove(fc.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", key, err)
		}
	}
	return nil
}

func (fc *FileCache) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, key := range keys {
		_, err := os.Stat(fc.path(key))
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, err
		}
	}
	return false, nil
}

func (fc *FileCache) Close() error { return nil }

func (fc *FileCache) path(key string) string {
	return filepath.Join(fc.dir, url.PathEscape(key)+".json")
}
