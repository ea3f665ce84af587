package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClassification(t *testing.T) {
	c := NewClassifier(DefaultZones())

	tests := []struct {
		lat, lon float64
		want     string
	}{
		{37.6, 127.0, "core"},
		{37.4, 127.0, "other"},
		{37.6, 126.8, "other"},
		{37.5, 127.0, "other"},
		{37.6, 126.9, "other"},
		{37.50001, 126.90001, "core"},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.lat, tt.lon); got != tt.want {
			t.Errorf("Classify(%v, %v) = %q, want %q", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestInRange(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{0, -180.5, false},
		{37.5, 200, false},
	}

	for _, tt := range tests {
		if got := InRange(tt.lat, tt.lon); got != tt.want {
			t.Errorf("InRange(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestParseZones(t *testing.T) {
	data := []byte(`
zones:
  - name: busan_port
    min_lat: 35.0
    max_lat: 35.2
    min_lon: 128.9
    max_lon: 129.2
  - name: core
    min_lat: 37.5
    min_lon: 126.9
`)

	zones, err := ParseZones(data)
	require.NoError(t, err)
	require.Len(t, zones, 2)

	c := NewClassifier(zones)
	assert.Equal(t, "busan_port", c.Classify(35.1, 129.0))
	assert.Equal(t, "core", c.Classify(37.6, 127.0))
	assert.Equal(t, "other", c.Classify(35.3, 129.0))
	assert.Equal(t, []string{"busan_port", "core", "other"}, c.Names())
}

func TestParseZones_FirstMatchWins(t *testing.T) {
	zones, err := ParseZones([]byte(`
zones:
  - name: inner
    min_lat: 37.5
    min_lon: 126.9
    max_lon: 127.1
  - name: wide
    min_lat: 37.0
`))
	require.NoError(t, err)

	c := NewClassifier(zones)
	assert.Equal(t, "inner", c.Classify(37.6, 127.0))
	assert.Equal(t, "wide", c.Classify(37.6, 127.5))
}

func TestParseZones_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no zones", "zones: []\n"},
		{"missing name", "zones:\n  - min_lat: 1\n"},
		{"reserved name", "zones:\n  - name: other\n"},
		{"duplicate", "zones:\n  - name: a\n  - name: a\n"},
		{"inverted lat", "zones:\n  - name: a\n    min_lat: 5\n    max_lat: 1\n"},
		{"malformed", "zones: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseZones([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadZones(t *testing.T) {
	zones, err := LoadZones("")
	require.NoError(t, err)
	assert.Equal(t, DefaultZones(), zones)

	path := filepath.Join(t.TempDir(), "zones.yaml")
	require.NoError(t, os.WriteFile(path, []byte("zones:\n  - name: north\n    min_lat: 38\n"), 0o644))

	zones, err = LoadZones(path)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "north", zones[0].Name)

	_, err = LoadZones(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
