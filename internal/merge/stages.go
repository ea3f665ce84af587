package merge

import (
	"github.com/JonMunkholm/storefront/internal/geo"
	"github.com/JonMunkholm/storefront/internal/listing"
)

func normalizeHeaders(t *listing.Table, _ *Report) {
	t.Rename(listing.NormalizeHeader)
}

// fillMissing fills branch names and integer address codes, then drops rows
// missing any required field. Absent columns are created so later stages see
// a uniform shape.
func (e *Engine) fillMissing(t *listing.Table, r *Report) {
	bi := t.AddColumn(listing.ColBranchName, listing.Null())
	for _, row := range t.Rows {
		if row[bi].IsNull() {
			row[bi] = listing.String(e.opts.BranchSentinel)
		}
	}

	for _, col := range intDefaults {
		ci := t.AddColumn(col, listing.Null())
		for _, row := range t.Rows {
			i, ok := row[ci].AsInt()
			if !ok {
				i = 0
			}
			row[ci] = listing.Int(i)
		}
	}

	idx := make([]int, len(required))
	for k, col := range required {
		idx[k] = t.AddColumn(col, listing.Null())
	}
	r.DroppedMissingRequired = t.Filter(func(row []listing.Value) bool {
		for _, i := range idx {
			if row[i].IsNull() {
				return false
			}
		}
		return true
	})
}

// dedup keeps the first row for each store_id. Null ids are not keys and
// every such row is kept.
func dedup(t *listing.Table, r *Report) {
	si := t.Index(listing.ColStoreID)
	if si < 0 {
		return
	}
	seen := make(map[string]struct{}, t.Len())
	r.Duplicates = t.Filter(func(row []listing.Value) bool {
		v := row[si]
		if v.IsNull() {
			return true
		}
		key := v.Str()
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
}

func (e *Engine) secondaryPrune(t *listing.Table, r *Report) {
	cols := secondaryDrop
	if e.opts.KeepStoreID {
		cols = make([]string, 0, len(secondaryDrop))
		for _, c := range secondaryDrop {
			if c != listing.ColStoreID {
				cols = append(cols, c)
			}
		}
	}
	r.dropColumns(t, cols)
}

// coerceCoordinates parses longitude and latitude; anything unparseable
// becomes null.
func coerceCoordinates(t *listing.Table, _ *Report) {
	for _, col := range []string{listing.ColLongitude, listing.ColLatitude} {
		ci := t.AddColumn(col, listing.Null())
		for _, row := range t.Rows {
			if f, ok := row[ci].AsFloat(); ok {
				row[ci] = listing.Float(f)
			} else {
				row[ci] = listing.Null()
			}
		}
	}
}

// geofence keeps rows whose coordinates are both present and in range.
func geofence(t *listing.Table, r *Report) {
	lon, lat := t.Index(listing.ColLongitude), t.Index(listing.ColLatitude)
	t.Filter(func(row []listing.Value) bool {
		if row[lon].IsNull() || row[lat].IsNull() {
			r.MissingCoordinates++
			return false
		}
		x, _ := row[lon].AsFloat()
		y, _ := row[lat].AsFloat()
		if !geo.InRange(y, x) {
			r.OutOfRange++
			return false
		}
		return true
	})
}

func (e *Engine) classify(t *listing.Table, r *Report) {
	lon, lat := t.Index(listing.ColLongitude), t.Index(listing.ColLatitude)
	zi := t.AddColumn(listing.ColMarketZone, listing.Null())
	for _, row := range t.Rows {
		x, _ := row[lon].AsFloat()
		y, _ := row[lat].AsFloat()
		zone := e.classifier.Classify(y, x)
		row[zi] = listing.String(zone)
		r.Zones[zone]++
	}
}
