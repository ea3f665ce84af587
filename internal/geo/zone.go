// Package geo classifies coordinates into named market zones.
package geo

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Coordinate range accepted by the geofence.
const (
	MinLongitude = -180.0
	MaxLongitude = 180.0
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
)

// Fallback is the zone assigned when no configured zone matches.
const Fallback = "other"

// InRange reports whether a point lies within the valid coordinate range,
// bounds inclusive.
func InRange(lat, lon float64) bool {
	return lat >= MinLatitude && lat <= MaxLatitude &&
		lon >= MinLongitude && lon <= MaxLongitude
}

// Bound is an optional strict limit.
type Bound struct {
	Value float64
	Set   bool
}

// Zone is an open or closed box. Every set bound is strict: a point on the
// edge is outside.
type Zone struct {
	Name   string
	MinLat Bound
	MaxLat Bound
	MinLon Bound
	MaxLon Bound
}

// Contains reports whether the point is strictly inside every set bound.
func (z Zone) Contains(lat, lon float64) bool {
	if z.MinLat.Set && !(lat > z.MinLat.Value) {
		return false
	}
	if z.MaxLat.Set && !(lat < z.MaxLat.Value) {
		return false
	}
	if z.MinLon.Set && !(lon > z.MinLon.Value) {
		return false
	}
	if z.MaxLon.Set && !(lon < z.MaxLon.Value) {
		return false
	}
	return true
}

// DefaultZones is the built-in classification: a single "core" zone north of
// latitude 37.5 and east of longitude 126.9.
func DefaultZones() []Zone {
	return []Zone{{
		Name:   "core",
		MinLat: Bound{Value: 37.5, Set: true},
		MinLon: Bound{Value: 126.9, Set: true},
	}}
}

// Classifier assigns a zone name to a point. The first matching zone wins.
type Classifier struct {
	zones []Zone
}

// NewClassifier builds a classifier over zones in order.
func NewClassifier(zones []Zone) *Classifier {
	return &Classifier{zones: append([]Zone(nil), zones...)}
}

// Classify returns the first zone containing the point, or Fallback.
func (c *Classifier) Classify(lat, lon float64) string {
	for _, z := range c.zones {
		if z.Contains(lat, lon) {
			return z.Name
		}
	}
	return Fallback
}

// Names returns the configured zone names followed by Fallback.
func (c *Classifier) Names() []string {
	out := make([]string, 0, len(c.zones)+1)
	for _, z := range c.zones {
		out = append(out, z.Name)
	}
	return append(out, Fallback)
}

// zoneFile is the YAML layout of ZONES_FILE:
//
//	zones:
//	  - name: core
//	    min_lat: 37.5
//	    min_lon: 126.9
//	  - name: busan_port
//	    min_lat: 35.0
//	    max_lat: 35.2
//	    min_lon: 128.9
//	    max_lon: 129.2
type zoneFile struct {
	Zones []zoneEntry `yaml:"zones"`
}

type zoneEntry struct {
	Name   string   `yaml:"name"`
	MinLat *float64 `yaml:"min_lat"`
	MaxLat *float64 `yaml:"max_lat"`
	MinLon *float64 `yaml:"min_lon"`
	MaxLon *float64 `yaml:"max_lon"`
}

func bound(p *float64) Bound {
	if p == nil {
		return Bound{}
	}
	return Bound{Value: *p, Set: true}
}

// ParseZones decodes a zone list from YAML.
func ParseZones(data []byte) ([]Zone, error) {
	var f zoneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse zones: %w", err)
	}
	if len(f.Zones) == 0 {
		return nil, errors.New("parse zones: no zones defined")
	}

	var errs []error
	seen := make(map[string]bool, len(f.Zones))
	zones := make([]Zone, 0, len(f.Zones))

	for i, e := range f.Zones {
		name := strings.TrimSpace(e.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("zone %d: name is required", i))
			continue
		case name == Fallback:
			errs = append(errs, fmt.Errorf("zone %d: %q is reserved", i, Fallback))
			continue
		case seen[name]:
			errs = append(errs, fmt.Errorf("zone %d: duplicate name %q", i, name))
			continue
		}
		seen[name] = true

		z := Zone{
			Name:   name,
			MinLat: bound(e.MinLat),
			MaxLat: bound(e.MaxLat),
			MinLon: bound(e.MinLon),
			MaxLon: bound(e.MaxLon),
		}
		if z.MinLat.Set && z.MaxLat.Set && z.MinLat.Value >= z.MaxLat.Value {
			errs = append(errs, fmt.Errorf("zone %q: min_lat must be < max_lat", name))
		}
		if z.MinLon.Set && z.MaxLon.Set && z.MinLon.Value >= z.MaxLon.Value {
			errs = append(errs, fmt.Errorf("zone %q: min_lon must be < max_lon", name))
		}
		zones = append(zones, z)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("parse zones: %w", err)
	}
	return zones, nil
}

// LoadZones reads zones from a YAML file. An empty path yields DefaultZones.
func LoadZones(path string) ([]Zone, error) {
	if path == "" {
		return DefaultZones(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones file: %w", err)
	}
	return ParseZones(data)
}
