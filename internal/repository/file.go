package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"rirblocks/internal/model"
)

// FileStore keeps one JSON file per registry under a cache directory.
// The file's mtime is the freshness clock; entries are never expired by
// the store itself. Writes go through a temp file and a rename, so a
// reader sees either the old entry or the new one, never a torn write.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{
		dir:    dir,
		logger: logger,
	}
}

func (s *FileStore) path(registry string) string {
	return filepath.Join(s.dir, "delegated-"+registry+".json")
}

func (s *FileStore) Load(ctx context.Context, registry string) (model.AllocationIndex, time.Duration, error) {
	path := s.path(registry)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", model.ErrCacheMiss, registry)
		}
		return nil, 0, fmt.Errorf("stat cache entry: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading cache entry: %w", err)
	}

	var index model.AllocationIndex
	if err := json.Unmarshal(data, &index); err != nil {
		s.logger.Error("failed to decode cache entry",
			zap.String("registry", registry),
			zap.String("path", path),
			zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %s: %v", model.ErrCacheCorrupt, path, err)
	}

	return index.EnsureFamilies(), time.Since(info.ModTime()), nil
}

func (s *FileStore) Save(ctx context.Context, registry string, index model.AllocationIndex) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "delegated-"+registry+"-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting cache file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(registry)); err != nil {
		return fmt.Errorf("installing cache entry: %w", err)
	}

	s.logger.Debug("saved cache entry",
		zap.String("registry", registry),
		zap.Int("bytes", len(data)))

	return nil
}
