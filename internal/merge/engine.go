// Package merge consolidates every region partition into one cleaned,
// deduplicated, geo-validated dataset.
//
// The engine runs a fixed sequence of stages over an in-memory table:
//
//  1. load and concatenate partitions in lexical file order
//  2. normalize headers (trim, resolve source aliases)
//  3. drop sub-address and unit columns
//  4. fill defaults and drop rows missing required fields
//  5. deduplicate on store_id, keeping the first occurrence
//  6. drop identifier and code columns not needed downstream
//  7. coerce coordinates to float64
//  8. keep rows with in-range coordinates
//  9. classify each row into a market zone
//  10. write preprocessed_data.parquet atomically
//
// Cancellation is checked between stages. Nothing is written unless every
// earlier stage succeeds.
package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
	"github.com/JonMunkholm/storefront/internal/geo"
	"github.com/JonMunkholm/storefront/internal/listing"
	"github.com/JonMunkholm/storefront/internal/logging"
)

// OutputFile is the name of the normalized dataset.
const OutputFile = "preprocessed_data.parquet"

var (
	primaryDrop = []string{
		listing.ColLotSubNo,
		listing.ColBuildingSubNo,
		listing.ColDongInfo,
		listing.ColFloorInfo,
		listing.ColUnitInfo,
	}

	intDefaults = []string{
		listing.ColLotMainNo,
		listing.ColRoadCode,
		listing.ColBuildingMainNo,
		listing.ColOldPostalCode,
	}

	required = []string{
		listing.ColStoreName,
		listing.ColIndustryCode,
		listing.ColIndustryName,
	}

	secondaryDrop = []string{
		listing.ColBuildingName,
		listing.ColBuildingMgmtNo,
		listing.ColOldPostalCode,
		listing.ColLegalDongCode,
		listing.ColAdminDongCode,
		listing.ColLotCode,
		listing.ColLandClassCode,
		listing.ColRoadCode,
		listing.ColRoadName,
		listing.ColBuildingMainNo,
		listing.ColLotMainNo,
		listing.ColStoreID,
		listing.ColCategoryLargeCode,
		listing.ColCategoryMidCode,
		listing.ColRegionCode,
	}
)

// MissingInputError is returned when the partition directory holds no
// partitions. It matches core.ErrMissingInput.
type MissingInputError struct {
	Dir string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("no *.parquet partitions in %s", e.Dir)
}

func (e *MissingInputError) Is(target error) bool {
	return target == core.ErrMissingInput
}

// Options configure the engine.
type Options struct {
	// BranchSentinel fills missing branch names.
	BranchSentinel string

	// KeepStoreID keeps store_id in the output.
	KeepStoreID bool

	// Zones are checked in order; nil uses geo.DefaultZones.
	Zones []geo.Zone
}

// FromConfig builds Options from the merge settings, loading ZONES_FILE.
func FromConfig(cfg config.MergeConfig) (Options, error) {
	zones, err := geo.LoadZones(cfg.ZonesFile)
	if err != nil {
		return Options{}, err
	}
	return Options{
		BranchSentinel: cfg.BranchSentinel,
		KeepStoreID:    cfg.KeepStoreID,
		Zones:          zones,
	}, nil
}

// Engine runs the normalization stages.
type Engine struct {
	opts       Options
	classifier *geo.Classifier
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.BranchSentinel == "" {
		opts.BranchSentinel = "headquarters"
	}
	if opts.Zones == nil {
		opts.Zones = geo.DefaultZones()
	}
	return &Engine{opts: opts, classifier: geo.NewClassifier(opts.Zones)}
}

// Run merges every partition in partitionDir and writes OutputFile into
// outputDir.
func (e *Engine) Run(ctx context.Context, partitionDir, outputDir string) (*Report, error) {
	logger := logging.WithFields(ctx, "stage", "merge")
	report := newReport(e.classifier.Names())

	files, err := partitions(partitionDir)
	if err != nil {
		return report, err
	}
	report.Partitions = files
	logger.Info("partitions found", "count", len(files), "dir", partitionDir)

	t, err := load(ctx, files)
	if err != nil {
		return report, err
	}
	report.RowsLoaded = t.Len()
	logger.Info("partitions concatenated", "rows", t.Len(), "columns", len(t.Columns))

	steps := []struct {
		name string
		run  func(*listing.Table, *Report)
	}{
		{"normalize headers", normalizeHeaders},
		{"primary pruning", func(t *listing.Table, r *Report) { r.dropColumns(t, primaryDrop) }},
		{"missing values", e.fillMissing},
		{"dedup", dedup},
		{"secondary pruning", e.secondaryPrune},
		{"coordinates", coerceCoordinates},
		{"geofence", geofence},
		{"zones", e.classify},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		step.run(t, report)
		logger.Debug("stage done", "step", step.name, "rows", t.Len())
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return report, fmt.Errorf("create output dir: %w", err)
	}
	out := filepath.Join(outputDir, OutputFile)
	if err := listing.WriteParquetFile(out, t); err != nil {
		return report, fmt.Errorf("write output: %w", err)
	}
	report.Output = out
	report.RowsWritten = t.Len()

	logger.Info("dataset written",
		"path", out,
		"rows", report.RowsWritten,
		"dropped_missing_required", report.DroppedMissingRequired,
		"duplicates", report.Duplicates,
		"out_of_range", report.OutOfRange,
		"missing_coordinates", report.MissingCoordinates,
		"zones", report.Zones,
	)
	return report, nil
}

func partitions(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &MissingInputError{Dir: dir}
	}
	sort.Strings(files)
	return files, nil
}

// load reads and concatenates partitions row-wise, in order.
func load(ctx context.Context, files []string) (*listing.Table, error) {
	var out *listing.Table
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := listing.ReadParquetFile(f)
		if err != nil {
			return nil, fmt.Errorf("load partition: %w", err)
		}
		if out == nil {
			out = t
			continue
		}
		out.Concat(t)
	}
	return out, nil
}
