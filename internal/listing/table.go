package listing

import "fmt"

// Table is an in-memory, column-named set of rows. Every row has exactly
// len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]Value

	index map[string]int
}

// NewTable returns an empty table with the given columns.
// Duplicate column names are an error.
func NewTable(columns []string) (*Table, error) {
	t := &Table{Columns: append([]string(nil), columns...)}
	if err := t.reindex(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) reindex() error {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; dup {
			return fmt.Errorf("duplicate column %q", c)
		}
		t.index[c] = i
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	if t.index == nil {
		_ = t.reindex()
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Append adds a row. The row must match the column count.
func (t *Table) Append(row []Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// AddColumn appends a column filled with fill and returns its index.
// An existing column is left untouched.
func (t *Table) AddColumn(name string, fill Value) int {
	if i := t.Index(name); i >= 0 {
		return i
	}
	t.Columns = append(t.Columns, name)
	t.index[name] = len(t.Columns) - 1
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], fill)
	}
	return len(t.Columns) - 1
}

// Concat appends other's rows. Columns are the union of both tables in
// first-seen order; cells missing on either side are null.
func (t *Table) Concat(other *Table) {
	for _, c := range other.Columns {
		t.AddColumn(c, Null())
	}
	pos := make([]int, len(other.Columns))
	for i, c := range other.Columns {
		pos[i] = t.index[c]
	}
	for _, src := range other.Rows {
		row := make([]Value, len(t.Columns))
		for i, v := range src {
			row[pos[i]] = v
		}
		t.Rows = append(t.Rows, row)
	}
}

// Rename maps every column name through fn. When two columns end up with the
// same name they are coalesced: the first column keeps its position and takes
// the later column's cell wherever its own is null.
func (t *Table) Rename(fn func(string) string) {
	names := make([]string, 0, len(t.Columns))
	target := make([]int, len(t.Columns))
	seen := make(map[string]int, len(t.Columns))

	for i, c := range t.Columns {
		n := fn(c)
		if j, ok := seen[n]; ok {
			target[i] = j
			continue
		}
		seen[n] = len(names)
		target[i] = len(names)
		names = append(names, n)
	}

	if len(names) != len(t.Columns) {
		for r, row := range t.Rows {
			out := make([]Value, len(names))
			for i, v := range row {
				if out[target[i]].IsNull() {
					out[target[i]] = v
				}
			}
			t.Rows[r] = out
		}
	}

	t.Columns = names
	t.index = seen
}

// Drop removes the named columns that exist and returns the ones removed.
func (t *Table) Drop(names ...string) []string {
	drop := make(map[int]bool, len(names))
	var dropped []string
	for _, n := range names {
		if i := t.Index(n); i >= 0 && !drop[i] {
			drop[i] = true
			dropped = append(dropped, n)
		}
	}
	if len(drop) == 0 {
		return nil
	}

	keep := make([]int, 0, len(t.Columns)-len(drop))
	for i := range t.Columns {
		if !drop[i] {
			keep = append(keep, i)
		}
	}

	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		out := make([]Value, len(keep))
		for j, i := range keep {
			out[j] = row[i]
		}
		t.Rows[r] = out
	}

	t.Columns = cols
	_ = t.reindex()
	return dropped
}

// Filter keeps the rows for which keep returns true, preserving order, and
// returns the number removed.
func (t *Table) Filter(keep func(row []Value) bool) int {
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		if keep(row) {
			kept = append(kept, row)
		}
	}
	removed := len(t.Rows) - len(kept)
	for i := len(kept); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = kept
	return removed
}

// Column returns every cell of the named column, or nil if absent.
func (t *Table) Column(name string) []Value {
	i := t.Index(name)
	if i < 0 {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}
