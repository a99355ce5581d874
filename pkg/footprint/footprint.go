// Package footprint builds granule footprints from CMR's flattened polygon
// strings and converts them to WKT, GeoJSON and bounding boxes.
package footprint

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidPolygon is returned when a CMR polygon string cannot form a ring.
var ErrInvalidPolygon = errors.New("invalid polygon")

// ParseRing parses a CMR polygon string into a ring.
// CMR lists vertices as "lat lon lat lon ..."; the ring is returned in
// (lon, lat) order and is closed if the source did not repeat the first vertex.
func ParseRing(s string) (orb.Ring, error) {
	fields := strings.Fields(s)
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of coordinates (%d)", ErrInvalidPolygon, len(fields))
	}

	ring := make(orb.Ring, 0, len(fields)/2+1)
	for i := 0; i < len(fields); i += 2 {
		lat, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid latitude %q", ErrInvalidPolygon, fields[i])
		}
		lon, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid longitude %q", ErrInvalidPolygon, fields[i+1])
		}
		ring = append(ring, orb.Point{lon, lat})
	}

	if len(ring) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 vertices, got %d", ErrInvalidPolygon, len(ring))
	}

	if !ring.Closed() {
		ring = append(ring, ring[0])
	}

	return ring, nil
}

// ParseCMRPolygons converts the "polygons" field of a CMR JSON granule entry
// into a multipolygon. Each element holds the outer ring first, followed by
// any holes. A nil or empty input yields a nil multipolygon.
func ParseCMRPolygons(polygons [][]string) (orb.MultiPolygon, error) {
	if len(polygons) == 0 {
		return nil, nil
	}

	mp := make(orb.MultiPolygon, 0, len(polygons))
	for i, rings := range polygons {
		if len(rings) == 0 {
			return nil, fmt.Errorf("%w: polygon %d has no rings", ErrInvalidPolygon, i)
		}

		poly := make(orb.Polygon, 0, len(rings))
		for _, s := range rings {
			ring, err := ParseRing(s)
			if err != nil {
				return nil, fmt.Errorf("polygon %d: %w", i, err)
			}
			poly = append(poly, ring)
		}
		mp = append(mp, poly)
	}

	return mp, nil
}

// IsEmpty reports whether a footprint carries no polygons.
func IsEmpty(mp orb.MultiPolygon) bool {
	return len(mp) == 0
}

// BBox returns [west, south, east, north] for a footprint, or nil if empty.
func BBox(mp orb.MultiPolygon) []float64 {
	if IsEmpty(mp) {
		return nil
	}
	b := mp.Bound()
	return []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
}

// ToWKT renders a footprint as a WKT MULTIPOLYGON.
func ToWKT(mp orb.MultiPolygon) string {
	if IsEmpty(mp) {
		return ""
	}
	return wkt.MarshalString(mp)
}

// ToGeoJSON renders a footprint as a GeoJSON geometry object.
func ToGeoJSON(mp orb.MultiPolygon) (json.RawMessage, error) {
	if IsEmpty(mp) {
		return nil, nil
	}
	data, err := json.Marshal(geojson.NewGeometry(mp))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal footprint: %w", err)
	}
	return data, nil
}
