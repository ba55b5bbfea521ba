package roi

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Zoom levels used when recentring the map on a region.
const (
	PointZoom = 14
	GotoZoom  = 15
	MinZoom   = 3
	MaxZoom   = 18
)

// Placeholder shown while nothing is selected.
const NoSelectionText = "Haritada bir nokta seçin veya tarla çizin"

// Describe renders the coordinates-display line for r.
func Describe(r ROI) string {
	switch r.kind {
	case KindPoint:
		return fmt.Sprintf("Nokta: %.5f, %.5f", r.point.Lat(), r.point.Lon())
	case KindPolygon:
		return fmt.Sprintf("Polygon seçildi (%d köşe, %.2f ha)", r.Vertices(), AreaHectares(r))
	default:
		return NoSelectionText
	}
}

// AreaHectares is the spherical area of a polygon region; 0 for anything else.
func AreaHectares(r ROI) float64 {
	if r.kind != KindPolygon {
		return 0
	}
	return math.Abs(geo.Area(orb.Polygon{r.ring})) / 10_000
}

// Viewport is a map recentring request.
type Viewport struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}

// FitViewport picks a centre and zoom that frame r. ok is false for Empty.
func FitViewport(r ROI) (vp Viewport, ok bool) {
	switch r.kind {
	case KindPoint:
		return Viewport{Center: LatLng{Lat: r.point.Lat(), Lng: r.point.Lon()}, Zoom: PointZoom}, true
	case KindPolygon:
		rect := s2.EmptyRect()
		for _, p := range r.ring {
			rect = rect.AddPoint(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
		}
		c := rect.Center()
		size := rect.Size()
		span := math.Max(size.Lat.Degrees(), size.Lng.Degrees())
		return Viewport{
			Center: LatLng{Lat: c.Lat.Degrees(), Lng: c.Lng.Degrees()},
			Zoom:   zoomForSpan(span),
		}, true
	default:
		return Viewport{}, false
	}
}

// zoomForSpan maps a span in degrees to a web-mercator zoom, one level out
// to leave padding around the shape.
func zoomForSpan(span float64) int {
	if span <= 0 {
		return MaxZoom
	}
	z := int(math.Floor(math.Log2(360/span))) - 1
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
