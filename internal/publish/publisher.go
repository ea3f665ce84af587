package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
	"github.com/JonMunkholm/storefront/internal/logging"
)

// Options configure a Publisher.
type Options struct {
	// Mode is config.PublishSwap (default) or config.PublishReplace.
	Mode string

	// Timeout bounds each remote operation. Zero means no limit.
	Timeout time.Duration
}

// Result describes a completed publish.
type Result struct {
	Mode   string `json:"mode"`
	Remote string `json:"remote"`

	// Leftover is a backup that could not be deleted after a successful swap.
	Leftover string `json:"leftover,omitempty"`

	// Restored is set when a failed swap put the previous copy back.
	Restored bool `json:"restored,omitempty"`
}

// Publisher replaces a remote directory with a local one.
type Publisher struct {
	store Store
	opts  Options
}

// New creates a Publisher over store.
func New(store Store, opts Options) *Publisher {
	if opts.Mode == "" {
		opts.Mode = config.PublishSwap
	}
	return &Publisher{store: store, opts: opts}
}

func (p *Publisher) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.Timeout)
}

func (p *Publisher) do(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := p.bounded(ctx)
	defer cancel()
	return fn(ctx)
}

// Publish makes remote a copy of local. runID names the temporary and
// backup paths used by swap mode.
//
// In replace mode the remote is deleted and re-uploaded, leaving a window
// with no valid remote copy. In swap mode the upload goes to
// <remote>.tmp-<run> and is renamed into place; the previous copy is kept at
// <remote>.old-<run> until the new one is live and restored if the final
// rename fails.
func (p *Publisher) Publish(ctx context.Context, local, remote, runID string) (*Result, error) {
	res := &Result{Mode: p.opts.Mode, Remote: remote}

	switch p.opts.Mode {
	case config.PublishReplace:
		return res, p.replace(ctx, local, remote)
	case config.PublishSwap:
		return res, p.swap(ctx, local, remote, runID, res)
	default:
		return res, fmt.Errorf("unknown publish mode %q", p.opts.Mode)
	}
}

func (p *Publisher) replace(ctx context.Context, local, remote string) error {
	logger := logging.WithFields(ctx, "stage", "publish", "mode", config.PublishReplace)

	if err := p.do(ctx, func(ctx context.Context) error { return p.store.DeleteIfExists(ctx, remote) }); err != nil {
		return err
	}
	if err := p.do(ctx, func(ctx context.Context) error { return p.store.PutDirectory(ctx, local, remote) }); err != nil {
		return err
	}
	logger.Info("remote replaced", "remote", remote)
	return nil
}

func (p *Publisher) swap(ctx context.Context, local, remote, runID string, res *Result) error {
	logger := logging.WithFields(ctx, "stage", "publish", "mode", config.PublishSwap)
	tmp := remote + ".tmp-" + runID
	old := remote + ".old-" + runID

	// Cleanup after a failure must run even when ctx is already cancelled.
	cleanupCtx := context.WithoutCancel(ctx)
	discardTmp := func() {
		if err := p.do(cleanupCtx, func(ctx context.Context) error { return p.store.DeleteIfExists(ctx, tmp) }); err != nil {
			logger.Warn("could not remove temporary upload", "path", tmp, "error", err)
		}
	}

	if err := p.do(ctx, func(ctx context.Context) error { return p.store.DeleteIfExists(ctx, tmp) }); err != nil {
		return err
	}
	if err := p.do(ctx, func(ctx context.Context) error { return p.store.PutDirectory(ctx, local, tmp) }); err != nil {
		discardTmp()
		return err
	}

	hadOld := true
	err := p.do(ctx, func(ctx context.Context) error { return p.store.Rename(ctx, remote, old) })
	switch {
	case errors.Is(err, core.ErrNotExist):
		hadOld = false
	case err != nil:
		discardTmp()
		return err
	}

	if err := p.do(ctx, func(ctx context.Context) error { return p.store.Rename(ctx, tmp, remote) }); err != nil {
		if hadOld {
			rerr := p.do(cleanupCtx, func(ctx context.Context) error { return p.store.Rename(ctx, old, remote) })
			if rerr != nil {
				logger.Error("could not restore previous copy", "backup", old, "error", rerr)
				return errors.Join(err, fmt.Errorf("restore %s: %w", old, rerr))
			}
			res.Restored = true
			logger.Warn("swap failed, previous copy restored", "remote", remote)
		}
		discardTmp()
		return err
	}

	if hadOld {
		if err := p.do(ctx, func(ctx context.Context) error { return p.store.DeleteIfExists(ctx, old) }); err != nil {
			res.Leftover = old
			logger.Warn("could not delete previous copy", "backup", old, "error", err)
		}
	}

	logger.Info("remote swapped", "remote", remote, "had_previous", hadOld)
	return nil
}
