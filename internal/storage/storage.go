// Package storage writes account exports to an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jjudge-oj/accountsvc/config"
)

var (
	// ErrDisabled is returned by Open when no storage backend is configured.
	ErrDisabled = errors.New("object storage is disabled; set STORAGE_BACKEND")
	// ErrObjectNotFound is returned by Get for a missing key.
	ErrObjectNotFound = errors.New("object not found")
)

// PutOptions describe an uploaded object.
type PutOptions struct {
	ContentType string
	// Metadata is stored as user metadata on the object.
	Metadata map[string]string
}

// ObjectStorage defines the object operations used by account exports.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
	Close() error
}

// Open connects to the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg config.Config) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", config.StorageBackendNone:
		return nil, ErrDisabled
	case config.StorageBackendMinio:
		client, err := NewMinioClient(cfg.Minio, cfg.Storage.Bucket)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		return client, nil
	case config.StorageBackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS, cfg.Storage.Bucket)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
