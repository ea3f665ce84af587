package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/logging"
)

// Portal page selectors.
const (
	searchInput  = "input#keyword"
	searchButton = "button.btn-search"
	downloadLink = "#fileDataList > div.result-list > ul > li:nth-child(1) > div.bottom-area > a"
)

// navigationTimeout bounds each page interaction. The download itself is
// bounded separately by RETRIEVAL_TIMEOUT.
const navigationTimeout = 60 * time.Second

// BrowserRetriever drives Chrome through the portal search and waits for the
// archive to land in the download directory.
type BrowserRetriever struct {
	cfg config.RetrievalConfig
	dir string
}

func NewBrowserRetriever(cfg config.RetrievalConfig, downloadDir string) *BrowserRetriever {
	return &BrowserRetriever{cfg: cfg, dir: downloadDir}
}

func (r *BrowserRetriever) Retrieve(ctx context.Context) (string, error) {
	logger := logging.WithFields(ctx, "stage", "retrieve")

	dir, err := filepath.Abs(r.dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	l := launcher.New().Headless(r.cfg.Headless)
	if r.cfg.BrowserBin != "" {
		l = l.Bin(r.cfg.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("launch chrome: %w", err)
	}
	defer func() {
		l.Kill()
		l.Cleanup()
	}()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("connect to chrome: %w", err)
	}
	defer browser.Close()

	if err := (proto.BrowserSetDownloadBehavior{
		Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath: dir,
	}).Call(browser); err != nil {
		return "", fmt.Errorf("set download dir: %w", err)
	}

	since := time.Now().Truncate(time.Second)
	logger.Info("opening portal", "url", r.cfg.PortalURL)
	if err := r.requestDownload(browser); err != nil {
		return "", err
	}
	logger.Info("download requested", "dir", dir, "timeout", r.cfg.Timeout)

	return WaitForDownload(ctx, Wait{
		Dir:      dir,
		Prefix:   r.cfg.ArchivePrefix,
		Timeout:  r.cfg.Timeout,
		Interval: r.cfg.PollInterval,
		Since:    since,
	})
}

// requestDownload searches for the dataset and clicks the first result's
// download link.
func (r *BrowserRetriever) requestDownload(browser *rod.Browser) error {
	page, err := browser.Page(proto.TargetCreateTarget{URL: r.cfg.PortalURL})
	if err != nil {
		return fmt.Errorf("open portal: %w", err)
	}
	page = page.Timeout(navigationTimeout)

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("load portal: %w", err)
	}

	input, err := page.Element(searchInput)
	if err != nil {
		return fmt.Errorf("find %s: %w", searchInput, err)
	}
	if err := input.Input(r.cfg.Keyword); err != nil {
		return fmt.Errorf("type keyword: %w", err)
	}

	button, err := page.Element(searchButton)
	if err != nil {
		return fmt.Errorf("find %s: %w", searchButton, err)
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click search: %w", err)
	}

	link, err := page.Element(downloadLink)
	if err != nil {
		return fmt.Errorf("find download link: %w", err)
	}
	if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click download: %w", err)
	}
	return nil
}
