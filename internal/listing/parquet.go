package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// columnOrderKey stores the table's column order in the file footer. Parquet
// groups sort their fields by name, so without it the order would be lost.
const columnOrderKey = "storefront.columns"

type physical int

const (
	physString physical = iota
	physInt
	physFloat
)

// inferColumn picks the narrowest physical type that holds every non-null
// cell: all integers -> INT64, all numeric -> DOUBLE, otherwise text.
// Columns with no values are written as text. Digit strings too wide for
// INT64 keep the column as text; DOUBLE needs a fraction or exponent.
func inferColumn(name string, cells []Value) physical {
	if IsForceString(name) {
		return physString
	}

	seen := false
	allInt := true
	for _, v := range cells {
		switch v.Kind() {
		case KindNull:
			continue
		case KindInt:
		case KindFloat:
			if _, ok := v.AsFloat(); !ok {
				return physString
			}
			allInt = false
		case KindString:
			s := strings.TrimSpace(v.s)
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				break
			}
			if !strings.ContainsAny(s, ".eE") {
				return physString
			}
			if _, ok := parseFloat(s); !ok {
				return physString
			}
			allInt = false
		}
		seen = true
	}

	switch {
	case !seen:
		return physString
	case allInt:
		return physInt
	default:
		return physFloat
	}
}

func leafNode(p physical) parquet.Node {
	switch p {
	case physInt:
		return parquet.Optional(parquet.Int(64))
	case physFloat:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	default:
		return parquet.Optional(parquet.String())
	}
}

func toParquet(v Value, p physical, leaf int) parquet.Value {
	if v.IsNull() {
		return parquet.NullValue().Level(0, 0, leaf)
	}
	switch p {
	case physInt:
		i, _ := v.AsInt()
		return parquet.Int64Value(i).Level(0, 1, leaf)
	case physFloat:
		f, _ := v.AsFloat()
		return parquet.DoubleValue(f).Level(0, 1, leaf)
	default:
		return parquet.ByteArrayValue([]byte(v.Str())).Level(0, 1, leaf)
	}
}

func fromParquet(v parquet.Value) Value {
	if v.IsNull() {
		return Null()
	}
	switch v.Kind() {
	case parquet.Boolean:
		return String(strconv.FormatBool(v.Boolean()))
	case parquet.Int32:
		return Int(int64(v.Int32()))
	case parquet.Int64:
		return Int(v.Int64())
	case parquet.Float:
		return Float(float64(v.Float()))
	case parquet.Double:
		return Float(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return String(string(v.ByteArray()))
	default:
		return String(v.String())
	}
}

// WriteParquet encodes t as a single Parquet file with one OPTIONAL leaf per
// column. Output is a pure function of the table, so equal tables produce
// equal bytes.
func WriteParquet(w io.Writer, t *Table) error {
	if len(t.Columns) == 0 {
		return errors.New("write parquet: table has no columns")
	}

	types := make([]physical, len(t.Columns))
	group := make(parquet.Group, len(t.Columns))
	for i, name := range t.Columns {
		types[i] = inferColumn(name, t.Column(name))
		group[name] = leafNode(types[i])
	}
	schema := parquet.NewSchema("listing", group)

	leaf := make(map[string]int, len(t.Columns))
	for i, path := range schema.Columns() {
		leaf[path[len(path)-1]] = i
	}

	order, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("write parquet: column order: %w", err)
	}

	pw := parquet.NewWriter(w, schema,
		parquet.Compression(&parquet.Snappy),
		parquet.KeyValueMetadata(columnOrderKey, string(order)),
	)

	const batch = 1024
	rows := make([]parquet.Row, 0, batch)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(rows); err != nil {
			return err
		}
		rows = rows[:0]
		return nil
	}

	for _, src := range t.Rows {
		row := make(parquet.Row, len(t.Columns))
		for i, name := range t.Columns {
			li := leaf[name]
			row[li] = toParquet(src[i], types[i], li)
		}
		rows = append(rows, row)
		if len(rows) == batch {
			if err := flush(); err != nil {
				return fmt.Errorf("write parquet: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := pw.Close(); err != nil {
		return fmt.Errorf("write parquet: close: %w", err)
	}
	return nil
}

// WriteParquetFile writes t to path atomically: the file is written to a
// temporary sibling and renamed over path only once complete.
func WriteParquetFile(path string, t *Table) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = WriteParquet(tmp, t); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// ReadParquetFile loads every row of a Parquet file. Leaf columns become
// table columns; nested paths are joined with ".".
func ReadParquetFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", filepath.Base(path), err)
	}

	paths := pf.Schema().Columns()
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = strings.Join(p, ".")
	}

	t, err := NewTable(names)
	if err != nil {
		return nil, fmt.Errorf("parquet %s: %w", filepath.Base(path), err)
	}

	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, buf, t); err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", filepath.Base(path), err)
		}
	}

	if raw, ok := pf.Lookup(columnOrderKey); ok {
		var order []string
		if json.Unmarshal([]byte(raw), &order) == nil {
			t.reorder(order)
		}
	}

	return t, nil
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, t *Table) error {
	rows := rg.Rows()
	defer rows.Close()

	width := len(t.Columns)
	for {
		n, err := rows.ReadRows(buf)
		for _, r := range buf[:n] {
			row := make([]Value, width)
			for _, v := range r {
				if c := v.Column(); c >= 0 && c < width {
					row[c] = fromParquet(v)
				}
			}
			t.Rows = append(t.Rows, row)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// reorder permutes columns to match order. It is a no-op unless order names
// exactly the table's columns.
func (t *Table) reorder(order []string) {
	if len(order) != len(t.Columns) {
		return
	}
	pos := make([]int, len(order))
	seen := make(map[string]bool, len(order))
	for i, name := range order {
		j := t.Index(name)
		if j < 0 || seen[name] {
			return
		}
		seen[name] = true
		pos[i] = j
	}

	for r, row := range t.Rows {
		out := make([]Value, len(pos))
		for i, j := range pos {
			out[i] = row[j]
		}
		t.Rows[r] = out
	}
	t.Columns = append([]string(nil), order...)
	_ = t.reindex()
}
