// Package publish replaces a shared remote directory with the contents of the
// local staging directory.
package publish

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/storefront/internal/config"
)

// Store is the remote storage boundary. Paths are remote directory paths (or
// object prefixes). Implementations wrap failures in *OpError and report a
// missing source for Rename as core.ErrNotExist.
type Store interface {
	// DeleteIfExists removes path and everything under it. A missing path
	// is not an error.
	DeleteIfExists(ctx context.Context, path string) error

	// PutDirectory uploads the local directory so that remote becomes a
	// copy of it. remote must not exist.
	PutDirectory(ctx context.Context, local, remote string) error

	// Rename moves from to to. to must not exist.
	Rename(ctx context.Context, from, to string) error
}

// Operation names used in OpError.
const (
	OpDelete = "delete"
	OpPut    = "put"
	OpRename = "rename"
)

// OpError identifies which remote operation failed.
type OpError struct {
	Backend string
	Op      string
	Path    string
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewStore builds the Store selected by REMOTE_BACKEND.
func NewStore(cfg config.PublishConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFS, "":
		return NewLocalFS(), nil
	case config.BackendS3:
		return NewObjectStore(cfg.S3)
	case config.BackendHDFS:
		return NewHDFS(cfg.HDFS.Bin), nil
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}
}
