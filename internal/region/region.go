// Package region maps the registry's native-script region labels to canonical
// ASCII region tags.
//
// The table is closed: 17 top-level administrative regions, each a Region
// value. Anything else resolves to Unknown, and Canonicalize hands the input
// back verbatim so an unexpected label still yields a usable partition name.
package region

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Region is one top-level administrative region of the source dataset.
type Region int

const (
	Unknown Region = iota
	Seoul
	Busan
	Daegu
	Incheon
	Gwangju
	Daejeon
	Ulsan
	Sejong
	Gyeonggi
	Gangwon
	Chungbuk
	Chungnam
	Jeonbuk
	Jeonnam
	Gyeongbuk
	Gyeongnam
	Jeju
)

type entry struct {
	label string
	tag   string
}

// table is indexed by Region. Unknown has no label or tag.
var table = [...]entry{
	Unknown:   {},
	Seoul:     {"서울", "seoul"},
	Busan:     {"부산", "busan"},
	Daegu:     {"대구", "daegu"},
	Incheon:   {"인천", "incheon"},
	Gwangju:   {"광주", "gwangju"},
	Daejeon:   {"대전", "daejeon"},
	Ulsan:     {"울산", "ulsan"},
	Sejong:    {"세종", "sejong"},
	Gyeonggi:  {"경기", "gyeonggi"},
	Gangwon:   {"강원", "gangwon"},
	Chungbuk:  {"충북", "chungbuk"},
	Chungnam:  {"충남", "chungnam"},
	Jeonbuk:   {"전북", "jeonbuk"},
	Jeonnam:   {"전남", "jeonnam"},
	Gyeongbuk: {"경북", "gyeongbuk"},
	Gyeongnam: {"경남", "gyeongnam"},
	Jeju:      {"제주", "jeju"},
}

var byLabel = func() map[string]Region {
	m := make(map[string]Region, len(table)-1)
	for r := Seoul; r <= Jeju; r++ {
		m[table[r].label] = r
	}
	return m
}()

// All returns every known region in table order.
func All() []Region {
	out := make([]Region, 0, len(table)-1)
	for r := Seoul; r <= Jeju; r++ {
		out = append(out, r)
	}
	return out
}

// Label returns the native-script source label. Empty for Unknown.
func (r Region) Label() string {
	if r <= Unknown || int(r) >= len(table) {
		return ""
	}
	return table[r].label
}

// Tag returns the canonical ASCII tag. Empty for Unknown.
func (r Region) Tag() string {
	if r <= Unknown || int(r) >= len(table) {
		return ""
	}
	return table[r].tag
}

func (r Region) String() string {
	if t := r.Tag(); t != "" {
		return t
	}
	return "unknown"
}

// Lookup resolves a source label. Labels are compared after trimming and NFC
// normalization, since zip tools on some platforms store decomposed Hangul.
func Lookup(label string) (Region, bool) {
	key := norm.NFC.String(strings.TrimSpace(label))
	r, ok := byLabel[key]
	if !ok {
		return Unknown, false
	}
	return r, true
}

// Canonicalize returns the canonical tag for a known label, or the label
// itself unchanged when it is not in the table.
func Canonicalize(label string) string {
	if r, ok := Lookup(label); ok {
		return r.Tag()
	}
	return label
}
