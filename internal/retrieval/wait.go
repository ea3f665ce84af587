package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/storefront/internal/core"
	"github.com/JonMunkholm/storefront/internal/logging"
)

// Wait configures WaitForDownload.
type Wait struct {
	Dir      string
	Prefix   string
	Timeout  time.Duration
	Interval time.Duration

	// Since ignores archives last modified before this instant. Zero accepts
	// any match.
	Since time.Time
}

// WaitForDownload polls Dir for a completed <Prefix>*.zip. It checks once
// immediately, then every Interval, and returns core.ErrRetrievalTimeout once
// Timeout elapses. Partial downloads keep a browser suffix and never match.
// When several archives match, the most recently modified wins.
func WaitForDownload(ctx context.Context, w Wait) (string, error) {
	if w.Interval <= 0 {
		w.Interval = time.Second
	}
	pattern := filepath.Join(w.Dir, w.Prefix+"*.zip")

	timer := time.NewTimer(w.Timeout)
	defer timer.Stop()
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		path, err := newest(pattern, w.Since)
		if err != nil {
			return "", err
		}
		if path != "" {
			logging.FromContext(ctx).Debug("download complete", "path", path)
			return path, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", fmt.Errorf("%w: no %s after %s", core.ErrRetrievalTimeout, filepath.Base(pattern), w.Timeout)
		case <-ticker.C:
		}
	}
}

func newest(pattern string, since time.Time) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	var (
		best    string
		bestMod time.Time
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		mod := info.ModTime()
		if mod.Before(since) {
			continue
		}
		if best == "" || mod.After(bestMod) {
			best, bestMod = m, mod
		}
	}
	return best, nil
}
