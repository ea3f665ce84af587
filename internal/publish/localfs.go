package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
)

// LocalFS publishes to a directory on a local or network-mounted filesystem.
// Rename is os.Rename, so a swap is atomic within one filesystem.
type LocalFS struct{}

// NewLocalFS returns a filesystem store.
func NewLocalFS() *LocalFS { return &LocalFS{} }

func (s *LocalFS) opErr(op, path string, err error) error {
	return &OpError{Backend: config.BackendFS, Op: op, Path: path, Err: err}
}

// DeleteIfExists removes path recursively.
func (s *LocalFS) DeleteIfExists(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return s.opErr(OpDelete, path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return s.opErr(OpDelete, path, err)
	}
	return nil
}

// PutDirectory copies the local tree to remote.
func (s *LocalFS) PutDirectory(ctx context.Context, local, remote string) error {
	if _, err := os.Stat(remote); err == nil {
		return s.opErr(OpPut, remote, fs.ErrExist)
	}

	err := filepath.WalkDir(local, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(local, path)
		if err != nil {
			return err
		}
		target := filepath.Join(remote, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
	if err != nil {
		return s.opErr(OpPut, remote, err)
	}
	return nil
}

// Rename moves from to to.
func (s *LocalFS) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return s.opErr(OpRename, from, err)
	}
	if _, err := os.Stat(to); err == nil {
		return s.opErr(OpRename, to, fs.ErrExist)
	}
	if err := os.Rename(from, to); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.opErr(OpRename, from, fmt.Errorf("%w: %v", core.ErrNotExist, err))
		}
		return s.opErr(OpRename, from, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
