package merge

import (
	"fmt"

	"github.com/JonMunkholm/storefront/internal/listing"
)

// Report counts what each stage did.
type Report struct {
	Partitions             []string       `json:"partitions"`
	RowsLoaded             int            `json:"rows_loaded"`
	DroppedMissingRequired int            `json:"dropped_missing_required"`
	Duplicates             int            `json:"duplicates"`
	OutOfRange             int            `json:"out_of_range"`
	MissingCoordinates     int            `json:"missing_coordinates"`
	RowsWritten            int            `json:"rows_written"`
	Zones                  map[string]int `json:"zones"`
	ColumnsDropped         []string       `json:"columns_dropped,omitempty"`
	Output                 string         `json:"output,omitempty"`
}

func newReport(zones []string) *Report {
	r := &Report{Zones: make(map[string]int, len(zones))}
	for _, z := range zones {
		r.Zones[z] = 0
	}
	return r
}

func (r *Report) dropColumns(t *listing.Table, cols []string) {
	r.ColumnsDropped = append(r.ColumnsDropped, t.Drop(cols...)...)
}

// Summary is a one-line description for status output.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d partitions, %d rows loaded, %d written (missing required %d, duplicates %d, out of range %d, no coordinates %d)",
		len(r.Partitions), r.RowsLoaded, r.RowsWritten,
		r.DroppedMissingRequired, r.Duplicates, r.OutOfRange, r.MissingCoordinates)
}
