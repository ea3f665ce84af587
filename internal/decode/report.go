package decode

import (
	"errors"
	"fmt"
)

// ErrNoRegionFiles is returned for an archive without any .csv entry.
var ErrNoRegionFiles = errors.New("archive holds no .csv region files")

// RegionResult is the outcome for one region file.
type RegionResult struct {
	File      string `json:"file"`
	Label     string `json:"label"`
	Tag       string `json:"tag"`
	Known     bool   `json:"known"`
	Rows      int    `json:"rows"`
	Bytes     int64  `json:"bytes"`
	Partition string `json:"partition,omitempty"`
	Err       error  `json:"-"`
	Error     string `json:"error,omitempty"`
}

// Report lists every region file the decoder saw.
type Report struct {
	Archive   string         `json:"archive"`
	Succeeded []RegionResult `json:"succeeded"`
	Failed    []RegionResult `json:"failed"`
	Skipped   []string       `json:"skipped,omitempty"`
	Removed   []string       `json:"removed,omitempty"`

	// Stale lists partitions from an earlier run that were deleted
	// because their region failed this time.
	Stale []string `json:"stale,omitempty"`
}

// Partitions returns the paths of the partitions written and kept.
func (r *Report) Partitions() []string {
	if len(r.Removed) > 0 {
		return nil
	}
	out := make([]string, 0, len(r.Succeeded))
	for _, s := range r.Succeeded {
		out = append(out, s.Partition)
	}
	return out
}

// Rows returns the total row count across succeeded regions.
func (r *Report) Rows() int {
	n := 0
	for _, s := range r.Succeeded {
		n += s.Rows
	}
	return n
}

// Summary is a one-line description for status output.
func (r *Report) Summary() string {
	s := fmt.Sprintf("%d regions, %d rows", len(r.Succeeded), r.Rows())
	if len(r.Failed) > 0 {
		s += fmt.Sprintf(", %d failed", len(r.Failed))
	}
	return s
}

// ConversionError reports region files that could not be decoded. The
// report still lists every partition that was written.
type ConversionError struct {
	Report *Report
	Err    error
}

func (e *ConversionError) Error() string {
	total := len(e.Report.Succeeded) + len(e.Report.Failed) + len(e.Report.Skipped)
	if total == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%d of %d region files failed: %v", len(e.Report.Failed), total, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func newConversionError(r *Report) *ConversionError {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.File, f.Err))
	}
	return &ConversionError{Report: r, Err: errors.Join(errs...)}
}
