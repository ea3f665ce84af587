package publish

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
)

// newCommand builds the hdfs invocation. Swapped out in tests.
var newCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// HDFS publishes through the hdfs command line client. Rename is
// "hdfs dfs -mv", which is atomic within the namenode.
type HDFS struct {
	bin string
}

// NewHDFS uses the given hdfs executable.
func NewHDFS(bin string) *HDFS {
	if bin == "" {
		bin = "hdfs"
	}
	return &HDFS{bin: bin}
}

func (s *HDFS) run(ctx context.Context, args ...string) (string, error) {
	cmd := newCommand(ctx, s.bin, append([]string{"dfs"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", err
		}
		return msg, fmt.Errorf("%w: %s", err, msg)
	}
	return "", nil
}

func (s *HDFS) opErr(op, p string, err error) error {
	return &OpError{Backend: config.BackendHDFS, Op: op, Path: p, Err: err}
}

// DeleteIfExists runs hdfs dfs -rm -r -f.
func (s *HDFS) DeleteIfExists(ctx context.Context, path string) error {
	if _, err := s.run(ctx, "-rm", "-r", "-f", path); err != nil {
		return s.opErr(OpDelete, path, err)
	}
	return nil
}

// PutDirectory runs hdfs dfs -put.
func (s *HDFS) PutDirectory(ctx context.Context, local, remote string) error {
	if _, err := s.run(ctx, "-put", local, remote); err != nil {
		return s.opErr(OpPut, remote, err)
	}
	return nil
}

// Rename runs hdfs dfs -mv.
func (s *HDFS) Rename(ctx context.Context, from, to string) error {
	msg, err := s.run(ctx, "-mv", from, to)
	if err == nil {
		return nil
	}
	if strings.Contains(msg, "No such file or directory") {
		return s.opErr(OpRename, from, fmt.Errorf("%w: %v", core.ErrNotExist, err))
	}
	return s.opErr(OpRename, from, err)
}
