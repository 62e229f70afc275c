package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore holds model artifacts addressed by bucket and key.
type ObjectStore interface {
	CreateBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	// DownloadObject writes the object to the local file filename, creating
	// parent directories as needed.
	DownloadObject(ctx context.Context, bucket, key, filename string) error
}
