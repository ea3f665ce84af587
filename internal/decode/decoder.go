// Package decode turns a downloaded registry archive into one Parquet
// partition per region.
package decode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/listing"
	"github.com/JonMunkholm/storefront/internal/logging"
	"github.com/JonMunkholm/storefront/internal/region"
)

// PartitionExt is the file extension of a region partition.
const PartitionExt = ".parquet"

// Options configure a Decoder.
type Options struct {
	// Workers bounds how many region files are decoded at once. Values
	// below 1 mean sequential.
	Workers int

	// Policy is config.PolicyIsolate or config.PolicyFailFast.
	Policy string

	// Encoding of the region CSVs: utf-8, euc-kr or cp949.
	Encoding string

	// ScratchDir is where the archive is extracted. Empty uses a fresh
	// temporary directory that is removed afterwards.
	ScratchDir string
}

// Decoder converts archives into staging partitions.
type Decoder struct {
	opts Options
}

// New creates a Decoder.
func New(opts Options) *Decoder {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Policy == "" {
		opts.Policy = config.PolicyIsolate
	}
	return &Decoder{opts: opts}
}

// FromConfig builds Options from the decode settings.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Workers:  cfg.Decode.Workers,
		Policy:   cfg.Decode.FailurePolicy,
		Encoding: cfg.Decode.SourceEncoding,
	}
}

type job struct {
	file  string
	label string
	tag   string
	known bool
	err   error // set before decoding for files that cannot be attempted
}

// Decode extracts archivePath, converts every region CSV and writes
// <tag>.parquet files into stagingDir.
//
// Under the isolate policy every region is attempted, and a
// *ConversionError carrying the report is returned when any failed. Under
// fail-fast the first failure stops the batch and every partition written
// by this call is removed again.
func (d *Decoder) Decode(ctx context.Context, archivePath, stagingDir string) (*Report, error) {
	logger := logging.WithFields(ctx, "stage", "decode", "archive", filepath.Base(archivePath))
	report := &Report{Archive: archivePath}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return report, fmt.Errorf("create staging dir: %w", err)
	}

	scratch := d.opts.ScratchDir
	if scratch == "" {
		dir, err := os.MkdirTemp("", "storefront-decode-*")
		if err != nil {
			return report, fmt.Errorf("create scratch dir: %w", err)
		}
		defer os.RemoveAll(dir)
		scratch = dir
	} else if err := os.MkdirAll(scratch, 0o755); err != nil {
		return report, fmt.Errorf("create scratch dir: %w", err)
	}

	files, err := extract(archivePath, scratch)
	if err != nil {
		return report, err
	}
	logger.Info("archive extracted", "csv_files", len(files))
	if len(files) == 0 {
		return report, &ConversionError{Report: report, Err: ErrNoRegionFiles}
	}

	jobs := plan(files)
	results := make([]*RegionResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	for i, j := range jobs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := d.decodeOne(j, stagingDir)
			results[i] = res
			if res.Err != nil {
				logger.Warn("region failed", "file", res.File, "label", res.Label, "error", res.Err)
				if d.opts.Policy == config.PolicyFailFast {
					return res.Err
				}
				return nil
			}
			logger.Info("partition written", "region", res.Tag, "rows", res.Rows, "bytes", res.Bytes)
			return nil
		})
	}
	failFastErr := g.Wait()

	for i, res := range results {
		switch {
		case res == nil:
			report.Skipped = append(report.Skipped, filepath.Base(jobs[i].file))
		case res.Err != nil:
			res.Error = res.Err.Error()
			report.Failed = append(report.Failed, *res)
		default:
			report.Succeeded = append(report.Succeeded, *res)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if failFastErr != nil {
		for _, s := range report.Succeeded {
			if err := os.Remove(s.Partition); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warn("could not remove partition", "path", s.Partition, "error", err)
				continue
			}
			report.Removed = append(report.Removed, s.Partition)
		}
		logger.Warn("batch aborted", "removed_partitions", len(report.Removed))
		return report, newConversionError(report)
	}

	if len(report.Failed) > 0 {
		dropStale(logger, report, stagingDir)
		return report, newConversionError(report)
	}
	return report, nil
}

// dropStale removes partitions left in staging by an earlier run for tags
// that failed this time, so a partial publish carries only this archive.
func dropStale(logger *slog.Logger, report *Report, stagingDir string) {
	written := make(map[string]bool, len(report.Succeeded))
	for _, s := range report.Succeeded {
		written[s.Tag] = true
	}
	for _, f := range report.Failed {
		if f.Tag == "" || written[f.Tag] {
			continue
		}
		path := filepath.Join(stagingDir, f.Tag+PartitionExt)
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Warn("could not remove stale partition", "path", path, "error", err)
			}
			continue
		}
		report.Stale = append(report.Stale, path)
		logger.Info("stale partition removed", "region", f.Tag, "path", path)
	}
}

// plan derives labels and tags and marks files that cannot be decoded:
// names without a region segment and tags already claimed by an earlier file.
func plan(files []string) []job {
	jobs := make([]job, 0, len(files))
	claimed := make(map[string]string, len(files))

	for _, f := range files {
		j := job{file: f}
		label, err := regionLabel(f)
		if err != nil {
			j.err = err
			jobs = append(jobs, j)
			continue
		}

		_, known := region.Lookup(label)
		j.label = label
		j.known = known
		j.tag = region.Canonicalize(label)

		if first, dup := claimed[j.tag]; dup {
			j.err = fmt.Errorf("region tag %q already produced by %s", j.tag, filepath.Base(first))
		} else {
			claimed[j.tag] = f
		}
		jobs = append(jobs, j)
	}
	return jobs
}

func (d *Decoder) decodeOne(j job, stagingDir string) *RegionResult {
	res := &RegionResult{
		File:  filepath.Base(j.file),
		Label: j.label,
		Tag:   j.tag,
		Known: j.known,
	}
	if j.err != nil {
		res.Err = j.err
		return res
	}

	f, err := os.Open(j.file)
	if err != nil {
		res.Err = err
		return res
	}
	defer f.Close()

	counter := listing.NewCountingReader(f)
	t, err := listing.ReadCSV(counter, listing.ReadOptions{
		Encoding: d.opts.Encoding,
		Header:   listing.NormalizeHeader,
	})
	if err != nil {
		res.Err = fmt.Errorf("parse: %w", err)
		return res
	}
	res.Rows = t.Len()
	res.Bytes = counter.BytesRead

	out := filepath.Join(stagingDir, j.tag+PartitionExt)
	if err := listing.WriteParquetFile(out, t); err != nil {
		res.Err = err
		return res
	}
	res.Partition = out
	return res
}
