// Package roi holds the region-of-interest value and the pure functions that
// turn drawing-toolkit output into it.
//
// The drawing toolkit speaks (lat, lng); everything past this package speaks
// geodetic (lng, lat) through orb.Point.
package roi

import (
	"encoding/json"
	"math"

	"github.com/paulmach/orb"
)

// Kind tags which variant a ROI holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindPoint
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindPolygon:
		return "polygon"
	default:
		return "empty"
	}
}

// LatLng is one vertex in the drawing toolkit's native ordering.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ROI is the single selected region. The zero value is Empty.
type ROI struct {
	kind  Kind
	point orb.Point
	ring  orb.Ring
}

// Empty is the "nothing selected" region.
var Empty = ROI{}

// NewPoint returns a Point region for (lat, lng). Only non-finite input is
// rejected: longitudes from wrapped world copies are wrapped into
// [-180, 180) and latitudes are clamped to [-90, 90].
func NewPoint(lat, lng float64) (ROI, error) {
	if !finite(lat) || !finite(lng) {
		return Empty, Invalidf("coordinates must be finite numbers")
	}
	return ROI{kind: KindPoint, point: orb.Point{WrapLng(lng), clampLat(lat)}}, nil
}

// WrapLng maps any finite longitude into [-180, 180).
func WrapLng(lng float64) float64 {
	if lng >= -180 && lng < 180 {
		return lng
	}
	w := math.Mod(lng+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

// NewPolygon closes points (geodetic order) into a ring and returns a
// Polygon region.
func NewPolygon(points []orb.Point) (ROI, error) {
	for _, p := range points {
		if !finite(p.Lon()) || !finite(p.Lat()) {
			return Empty, Invalidf("polygon vertices must be finite numbers")
		}
	}
	ring, err := CloseRing(points)
	if err != nil {
		return Empty, err
	}
	return ROI{kind: KindPolygon, ring: ring}, nil
}

func (r ROI) Kind() Kind     { return r.kind }
func (r ROI) IsEmpty() bool  { return r.kind == KindEmpty }
func (r ROI) String() string { return Describe(r) }

// Point returns the location of a Point region.
func (r ROI) Point() (orb.Point, bool) {
	return r.point, r.kind == KindPoint
}

// Ring returns a copy of the closed ring of a Polygon region.
func (r ROI) Ring() (orb.Ring, bool) {
	if r.kind != KindPolygon {
		return nil, false
	}
	return r.ring.Clone(), true
}

// Vertices counts distinct vertices: 1 for a point, len(ring)-1 for a polygon.
func (r ROI) Vertices() int {
	switch r.kind {
	case KindPoint:
		return 1
	case KindPolygon:
		return len(r.ring) - 1
	default:
		return 0
	}
}

// Geometry returns the orb form of the region, nil when empty.
func (r ROI) Geometry() orb.Geometry {
	switch r.kind {
	case KindPoint:
		return r.point
	case KindPolygon:
		return orb.Polygon{r.ring.Clone()}
	default:
		return nil
	}
}

// Equal compares kind and coordinates.
func (r ROI) Equal(o ROI) bool {
	if r.kind != o.kind {
		return false
	}
	switch r.kind {
	case KindPoint:
		return r.point.Equal(o.point)
	case KindPolygon:
		return r.ring.Equal(o.ring)
	default:
		return true
	}
}

// MarshalJSON emits the remote service's coordinates form: [lng,lat] for a
// point, [[lng,lat],...] for a closed polygon, null when empty.
func (r ROI) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case KindPoint:
		return json.Marshal([2]float64{r.point.Lon(), r.point.Lat()})
	case KindPolygon:
		coords := make([][2]float64, len(r.ring))
		for i, p := range r.ring {
			coords[i] = [2]float64{p.Lon(), p.Lat()}
		}
		return json.Marshal(coords)
	default:
		return []byte("null"), nil
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
