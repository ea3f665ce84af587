package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/storefront/internal/core"
	"github.com/JonMunkholm/storefront/internal/decode"
	"github.com/JonMunkholm/storefront/internal/logging"
	"github.com/JonMunkholm/storefront/internal/publish"
	"github.com/JonMunkholm/storefront/internal/retrieval"
)

// AcquireResult is what an acquire run produced.
type AcquireResult struct {
	RunID   string          `json:"run_id"`
	Archive string          `json:"archive,omitempty"`
	Decode  *decode.Report  `json:"decode,omitempty"`
	Publish *publish.Result `json:"publish,omitempty"`
	Cleaned []string        `json:"cleaned,omitempty"`
}

// Acquire retrieves the archive, decodes it into staging and publishes the
// staging store.
//
// When some region files fail under the isolate policy the partitions that
// were written are still published, and the conversion error is returned
// afterwards.
func (p *Pipeline) Acquire(ctx context.Context) (res *AcquireResult, err error) {
	r := p.begin(ctx, CommandAcquire)
	res = &AcquireResult{RunID: r.id.String()}
	defer func() { p.end(r, res, err) }()

	release, err := p.lock(r)
	if err != nil {
		return res, err
	}
	defer release()

	err = p.stage(r, StageRetrieve, core.KindRetrieval, func(ctx context.Context) (string, error) {
		path, err := p.retriever.Retrieve(ctx)
		if err != nil {
			return "", err
		}
		res.Archive = path
		return filepath.Base(path), nil
	})
	if err != nil {
		return res, err
	}

	staging := p.cfg.Paths.StagingDir
	var convErr error
	err = p.stage(r, StageDecode, core.KindConversion, func(ctx context.Context) (string, error) {
		report, err := p.decoder.Decode(ctx, res.Archive, staging)
		res.Decode = report
		p.observeDecode(report)
		if err != nil {
			return "", err
		}
		return report.Summary(), nil
	})
	if err != nil {
		var ce *decode.ConversionError
		if !errors.As(err, &ce) || len(ce.Report.Partitions()) == 0 {
			return res, err
		}
		logging.FromContext(r.ctx).Warn("publishing partial staging store",
			"succeeded", len(ce.Report.Succeeded),
			"failed", len(ce.Report.Failed),
		)
		convErr = err
	}

	err = p.stage(r, StagePublish, core.KindPublish, func(ctx context.Context) (string, error) {
		pr, err := p.publisher.Publish(ctx, staging, p.cfg.Publish.RemoteDir, r.id.String())
		res.Publish = pr
		if err != nil {
			return "", err
		}
		summary := fmt.Sprintf("%s to %s", pr.Mode, pr.Remote)
		if pr.Leftover != "" {
			summary += ", backup left at " + pr.Leftover
		}
		return summary, nil
	})
	if err != nil {
		return res, err
	}

	if convErr != nil {
		// Staging holds partial output; keep the archive for a rerun.
		return res, convErr
	}

	// Cleanup problems are logged; the published data is already in place.
	_ = p.stage(r, StageCleanup, core.KindPersist, func(context.Context) (string, error) {
		res.Cleaned = p.cleanup(r, res)
		if len(res.Cleaned) == 0 {
			return "nothing removed", nil
		}
		return strings.Join(res.Cleaned, ", "), nil
	})
	return res, nil
}

func (p *Pipeline) observeDecode(report *decode.Report) {
	if report == nil {
		return
	}
	for _, s := range report.Succeeded {
		p.metrics.SetPartitionRows(s.Tag, s.Rows)
	}
	p.metrics.AddPartitions("succeeded", len(report.Succeeded))
	p.metrics.AddPartitions("failed", len(report.Failed))
	p.metrics.AddPartitions("skipped", len(report.Skipped))
}

// cleanup removes the downloaded archive and the staging partitions as
// configured. An archive supplied through ARCHIVE_PATH is never removed.
func (p *Pipeline) cleanup(r *run, res *AcquireResult) []string {
	logger := logging.WithFields(r.ctx, "stage", StageCleanup)
	var removed []string

	_, static := p.retriever.(retrieval.StaticRetriever)
	if p.cfg.Paths.CleanupDownload && !static && res.Archive != "" {
		if err := os.Remove(res.Archive); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("archive not removed", "path", res.Archive, "error", err)
		} else {
			removed = append(removed, res.Archive)
		}
	}

	if p.cfg.Paths.CleanupStaging && res.Decode != nil {
		for _, part := range res.Decode.Partitions() {
			if err := os.Remove(part); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warn("partition not removed", "path", part, "error", err)
				continue
			}
			removed = append(removed, part)
		}
	}
	return removed
}
