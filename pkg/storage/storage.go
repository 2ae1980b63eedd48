package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/inkworks/folio/config"
	"github.com/inkworks/folio/pkg/logger"
	"github.com/inkworks/folio/pkg/storage/local"
	"github.com/inkworks/folio/pkg/storage/minio"
	"github.com/inkworks/folio/pkg/storage/s3"
)

// Backend names accepted by New.
const (
	BackendLocal = "local"
	BackendMinio = "minio"
	BackendS3    = "s3"
)

// ErrNotExist is returned by Get when the key does not exist. Backends
// wrap fs.ErrNotExist so errors.Is works regardless of the backend.
var ErrNotExist = fs.ErrNotExist

// Storage is the artifact store behind the assembler and resume tracker.
// Keys are slash-separated relative paths.
type Storage interface {
	// Store writes the full content of reader under key, replacing any
	// existing object. The write is atomic: a reader never observes a
	// partially written object.
	Store(ctx context.Context, reader io.Reader, key string) error
	// Get opens the object at key, or returns an error wrapping
	// ErrNotExist when absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns all keys with the given prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the object at key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
}

// New creates the storage backend named by cfg.Backend.
func New(cfg config.StorageConfig, log logger.Logger) (Storage, error) {
	switch cfg.Backend {
	case BackendLocal:
		return local.New(log)
	case BackendMinio:
		return minio.New(cfg.Minio, log)
	case BackendS3:
		return s3.New(cfg.S3, log)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
