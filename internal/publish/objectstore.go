package publish

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
)

// ObjectStore publishes to an S3-compatible bucket. A remote directory is an
// object prefix. Rename is copy then delete, so a swap here is not atomic.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore connects to the configured endpoint. The bucket must exist.
func NewObjectStore(cfg config.S3Config) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *ObjectStore) opErr(op, p string, err error) error {
	return &OpError{Backend: config.BackendS3, Op: op, Path: p, Err: err}
}

// prefix turns a remote directory into an object key prefix ending in "/".
func prefix(dir string) string {
	p := strings.Trim(path.Clean("/"+filepath.ToSlash(dir)), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func (s *ObjectStore) keys(ctx context.Context, dir string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix(dir),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *ObjectStore) removeKeys(ctx context.Context, keys []string) error {
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return fmt.Errorf("remove %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return nil
}

// DeleteIfExists removes every object under the prefix.
func (s *ObjectStore) DeleteIfExists(ctx context.Context, dir string) error {
	keys, err := s.keys(ctx, dir)
	if err != nil {
		return s.opErr(OpDelete, dir, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.removeKeys(ctx, keys); err != nil {
		return s.opErr(OpDelete, dir, err)
	}
	return nil
}

// PutDirectory uploads every file under local to the remote prefix.
func (s *ObjectStore) PutDirectory(ctx context.Context, local, remote string) error {
	base := prefix(remote)
	err := filepath.WalkDir(local, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(local, p)
		if err != nil {
			return err
		}
		key := base + filepath.ToSlash(rel)
		_, err = s.client.FPutObject(ctx, s.bucket, key, p, minio.PutObjectOptions{
			ContentType: contentType(p),
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return s.opErr(OpPut, remote, err)
	}
	return nil
}

// Rename copies every object under from to the same relative key under to,
// then deletes the originals.
func (s *ObjectStore) Rename(ctx context.Context, from, to string) error {
	keys, err := s.keys(ctx, from)
	if err != nil {
		return s.opErr(OpRename, from, err)
	}
	if len(keys) == 0 {
		return s.opErr(OpRename, from, core.ErrNotExist)
	}

	src, dst := prefix(from), prefix(to)
	for _, k := range keys {
		_, err := s.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: s.bucket, Object: dst + strings.TrimPrefix(k, src)},
			minio.CopySrcOptions{Bucket: s.bucket, Object: k},
		)
		if err != nil {
			return s.opErr(OpRename, from, fmt.Errorf("copy %s: %w", k, err))
		}
	}

	if err := s.removeKeys(ctx, keys); err != nil {
		return s.opErr(OpRename, from, err)
	}
	return nil
}

func contentType(p string) string {
	if strings.EqualFold(filepath.Ext(p), ".parquet") {
		return "application/vnd.apache.parquet"
	}
	return "application/octet-stream"
}
