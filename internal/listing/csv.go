package listing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ErrEmptySource is returned for a CSV without a header row.
var ErrEmptySource = errors.New("no header row")

// ReadOptions control how a registry CSV is parsed.
type ReadOptions struct {
	// Encoding of the raw bytes: utf-8 (default), euc-kr or cp949.
	Encoding string

	// Header maps each raw header to the stored column name. Nil keeps
	// headers as read.
	Header func(string) string
}

// ReadCSV parses a registry CSV into a table of string and null cells.
//
// Blank fields are null. Short records are padded with nulls; a record wider
// than the header is an error, as is a header that yields duplicate names.
func ReadCSV(r io.Reader, opts ReadOptions) (*Table, error) {
	src, err := NewSourceReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		if opts.Header != nil {
			h = opts.Header(h)
		}
		names[i] = h
	}

	t, err := NewTable(names)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(rec) > len(names) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), len(names))
		}

		row := make([]Value, len(names))
		for i, cell := range rec {
			row[i] = Text(cell)
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}
