// Package retrieval obtains the registry archive: either by driving a
// headless browser through the open-data portal, or from a path given in
// configuration.
package retrieval

import (
	"context"
	"fmt"
	"os"

	"github.com/JonMunkholm/storefront/internal/config"
)

// Retriever produces the local path of a downloaded archive.
type Retriever interface {
	Retrieve(ctx context.Context) (string, error)
}

// StaticRetriever returns an archive that is already on disk.
type StaticRetriever struct {
	Path string
}

func (r StaticRetriever) Retrieve(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(r.Path)
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("archive: %s is a directory", r.Path)
	}
	return r.Path, nil
}

// FromConfig picks StaticRetriever when ARCHIVE_PATH is set, otherwise a
// BrowserRetriever downloading into DOWNLOAD_DIR.
func FromConfig(cfg *config.Config) Retriever {
	if cfg.Paths.ArchivePath != "" {
		return StaticRetriever{Path: cfg.Paths.ArchivePath}
	}
	return NewBrowserRetriever(cfg.Retrieval, cfg.Paths.DownloadDir)
}
