package listing

// source.go prepares raw registry bytes for the CSV parser without loading
// the file into memory:
//
//   - legacy Korean encodings (EUC-KR / CP949) are decoded to UTF-8
//   - a leading UTF-8 byte order mark is removed
//   - ill-formed UTF-8 is replaced with U+FFFD
//
// NewSourceReader applies the transforms in that order.

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// NewSourceReader wraps r so it yields clean UTF-8. encoding is "utf-8"
// (or empty), "euc-kr" or "cp949".
func NewSourceReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
	case "euc-kr", "euckr", "cp949":
		// x/text's EUC-KR table is the CP949 superset.
		r = transform.NewReader(r, korean.EUCKR.NewDecoder())
	default:
		return nil, fmt.Errorf("unsupported source encoding %q", encoding)
	}

	return transform.NewReader(r, transform.Chain(
		unicode.BOMOverride(transform.Nop),
		runes.ReplaceIllFormed(),
	)), nil
}

// CountingReader tracks bytes read from the underlying reader.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}
