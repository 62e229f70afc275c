package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type LocalObjectStore struct {
	baseDir string
}

var _ ObjectStore = (*LocalObjectStore)(nil)

func NewLocalObjectStore(dir string) (*LocalObjectStore, error) {
	baseDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}

	return &LocalObjectStore{baseDir: baseDir}, nil
}

func (s *LocalObjectStore) CreateBucket(ctx context.Context, bucket string) error {
	path := filepath.Join(s.baseDir, bucket)
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create bucket directory %s: %w", path, err)
	}
	return nil
}

func (s *LocalObjectStore) PutObject(ctx context.Context, bucket, key string, data io.Reader) error {
	path := localStorageFullpath(s.baseDir, bucket, key)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *LocalObjectStore) DownloadObject(ctx context.Context, bucket, key, filename string) error {
	path := localStorageFullpath(s.baseDir, bucket, key)

	src, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to download %s/%s: %w", bucket, key, ErrObjectNotFound)
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	if err := writeFileAtomic(filename, src); err != nil {
		return fmt.Errorf("failed to download %s/%s: %w", bucket, key, err)
	}

	slog.Info("object downloaded successfully", "bucket", bucket, "key", key, "dest", filename)
	return nil
}
