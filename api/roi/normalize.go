package roi

import (
	"github.com/paulmach/orb"
)

// Shape is the drawing toolkit's layer type for a created or edited layer.
type Shape string

const (
	ShapeMarker    Shape = "marker"
	ShapePolygon   Shape = "polygon"
	ShapeRectangle Shape = "rectangle"
)

// Geometry is the raw geometry of a toolkit layer, still in (lat, lng)
// order. Markers fill Point; polygons and rectangles fill Rings, outer ring
// first.
type Geometry struct {
	Point *LatLng
	Rings [][]LatLng
}

// ToGeodetic swaps the toolkit's (lat, lng) into geodetic (lng, lat).
func ToGeodetic(ll LatLng) orb.Point {
	return orb.Point{ll.Lng, ll.Lat}
}

// ToGeodeticAll converts a whole vertex list.
func ToGeodeticAll(lls []LatLng) []orb.Point {
	out := make([]orb.Point, len(lls))
	for i, ll := range lls {
		out[i] = ToGeodetic(ll)
	}
	return out
}

// CloseRing appends points[0] when the sequence is not already closed.
// Fewer than three distinct vertices is a ValidationError. The input slice
// is never modified.
func CloseRing(points []orb.Point) (orb.Ring, error) {
	n := len(points)
	closed := n > 1 && points[0].Equal(points[n-1])
	distinct := n
	if closed {
		distinct--
	}
	if distinct < 3 {
		return nil, Invalidf("polygon needs at least 3 vertices, got %d", distinct)
	}

	ring := make(orb.Ring, n, n+1)
	copy(ring, points)
	if !closed {
		ring = append(ring, points[0])
	}
	return ring, nil
}

// FromGeometry turns a toolkit layer into a ROI.
func FromGeometry(shape Shape, g Geometry) (ROI, error) {
	switch shape {
	case ShapeMarker:
		if g.Point == nil {
			return Empty, Invalidf("marker without a position")
		}
		return NewPoint(g.Point.Lat, g.Point.Lng)
	case ShapePolygon, ShapeRectangle:
		if len(g.Rings) == 0 {
			return Empty, Invalidf("%s without an outer ring", shape)
		}
		return NewPolygon(ToGeodeticAll(g.Rings[0]))
	default:
		return Empty, &UnsupportedShapeError{Shape: string(shape)}
	}
}
