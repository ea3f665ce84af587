package retrieval

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
	"github.com/JonMunkholm/storefront/internal/logging"
)

const prefix = "소상공인시장진흥공단_상가(상권)정보_"

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestWaitForDownload_Timeout(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, prefix+"202409.zip.crdownload"), time.Now())
	touch(t, filepath.Join(dir, "other_202409.zip"), time.Now())

	start := time.Now()
	_, err := WaitForDownload(context.Background(), Wait{
		Dir:      dir,
		Prefix:   prefix,
		Timeout:  50 * time.Millisecond,
		Interval: 10 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRetrievalTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitForDownload_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := WaitForDownload(ctx, Wait{
		Dir:      t.TempDir(),
		Prefix:   prefix,
		Timeout:  time.Minute,
		Interval: 5 * time.Millisecond,
	})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestWaitForDownload_ArrivesLater(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, prefix+"202409.zip")
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(want, []byte("PK"), 0o644)
	}()

	got, err := WaitForDownload(context.Background(), Wait{
		Dir:      dir,
		Prefix:   prefix,
		Timeout:  5 * time.Second,
		Interval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWaitForDownload_NewestAfterSince(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	stale := filepath.Join(dir, prefix+"202312.zip")
	older := filepath.Join(dir, prefix+"202406.zip")
	newer := filepath.Join(dir, prefix+"202409.zip")
	touch(t, stale, now.Add(-48*time.Hour))
	touch(t, older, now.Add(-time.Minute))
	touch(t, newer, now)

	got, err := WaitForDownload(context.Background(), Wait{
		Dir:      dir,
		Prefix:   prefix,
		Timeout:  time.Second,
		Interval: 5 * time.Millisecond,
		Since:    now.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	_, err = WaitForDownload(context.Background(), Wait{
		Dir:      dir,
		Prefix:   prefix,
		Timeout:  20 * time.Millisecond,
		Interval: 5 * time.Millisecond,
		Since:    now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, core.ErrRetrievalTimeout, "archives older than Since are ignored")
}

func TestStaticRetriever(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a_b_서울_202409.zip")
	touch(t, path, time.Now())

	got, err := StaticRetriever{Path: path}.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = StaticRetriever{Path: filepath.Join(dir, "missing.zip")}.Retrieve(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = StaticRetriever{Path: dir}.Retrieve(context.Background())
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Paths.DownloadDir = "/tmp/dl"
	assert.IsType(t, &BrowserRetriever{}, FromConfig(cfg))

	cfg.Paths.ArchivePath = "/tmp/archive.zip"
	assert.Equal(t, StaticRetriever{Path: "/tmp/archive.zip"}, FromConfig(cfg))
}

func TestWaitForDownload_LogsRunID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(logging.NewHandler(&buf, "debug", "text")))
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	touch(t, filepath.Join(dir, prefix+"202409.zip"), time.Now())

	ctx := logging.WithRunID(context.Background(), "run-42")
	_, err := WaitForDownload(ctx, Wait{Dir: dir, Prefix: prefix, Timeout: time.Second})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "download complete")
	assert.Contains(t, buf.String(), "run_id=run-42")
}
