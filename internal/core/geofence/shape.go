// Package geofence implements geofence geometry, a coarse spatial index,
// and per-entity containment transition detection. Containment tests are
// pure functions over immutable shape data so they stay unit-testable
// without the rest of the ingestion pipeline.
package geofence

import (
	"math"

	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/pkg/geospatial"
)

// Below this radius the equirectangular approximation is within a few
// centimeters of the great-circle distance, so we skip the trig-heavy
// haversine for small circles.
const smallRadiusMeters = 10_000

// ValidateShape checks shape geometry at registration time.
// Degenerate polygons (<3 vertices), non-positive radii, and vertices or
// centers outside the WGS 84 domain are rejected with InvalidShape.
func ValidateShape(s domain.Shape) error {
	switch s.Kind {
	case domain.ShapeCircle:
		if s.Circle == nil {
			return domain.NewValidationError(domain.RejectInvalidShape, "circle geometry missing")
		}
		if !s.Circle.Center.Valid() {
			return domain.NewValidationError(domain.RejectInvalidShape, "circle center out of range")
		}
		if s.Circle.RadiusMeters <= 0 {
			return domain.NewValidationError(domain.RejectInvalidShape, "circle radius must be positive, got %g", s.Circle.RadiusMeters)
		}
	case domain.ShapePolygon:
		if s.Polygon == nil {
			return domain.NewValidationError(domain.RejectInvalidShape, "polygon geometry missing")
		}
		if len(s.Polygon.Vertices) < 3 {
			return domain.NewValidationError(domain.RejectInvalidShape, "polygon needs at least 3 vertices, got %d", len(s.Polygon.Vertices))
		}
		for i, v := range s.Polygon.Vertices {
			if !v.Valid() {
				return domain.NewValidationError(domain.RejectInvalidShape, "polygon vertex %d out of range", i)
			}
		}
	default:
		return domain.NewValidationError(domain.RejectInvalidShape, "unknown shape kind %q", s.Kind)
	}
	return nil
}

// Contains reports whether p lies inside the shape. Boundary points are
// treated as contained.
func Contains(s domain.Shape, p domain.GeoPoint) bool {
	switch s.Kind {
	case domain.ShapeCircle:
		return circleContains(*s.Circle, p)
	case domain.ShapePolygon:
		return polygonContains(*s.Polygon, p)
	}
	return false
}

// ShapeBounds returns the bounding box enclosing the shape, used by the
// spatial index for coarse bucketing.
func ShapeBounds(s domain.Shape) domain.Bounds {
	switch s.Kind {
	case domain.ShapeCircle:
		minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(
			s.Circle.Center.Lat, s.Circle.Center.Lon, s.Circle.RadiusMeters)
		return domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
	case domain.ShapePolygon:
		b := domain.Bounds{MinLat: 90, MinLon: 180, MaxLat: -90, MaxLon: -180}
		for _, v := range s.Polygon.Vertices {
			b.MinLat = math.Min(b.MinLat, v.Lat)
			b.MaxLat = math.Max(b.MaxLat, v.Lat)
			b.MinLon = math.Min(b.MinLon, v.Lon)
			b.MaxLon = math.Max(b.MaxLon, v.Lon)
		}
		return b
	}
	return domain.Bounds{}
}

func circleContains(c domain.Circle, p domain.GeoPoint) bool {
	var d float64
	if c.RadiusMeters <= smallRadiusMeters {
		d = geospatial.Equirectangular(c.Center.Lat, c.Center.Lon, p.Lat, p.Lon)
	} else {
		d = geospatial.Haversine(c.Center.Lat, c.Center.Lon, p.Lat, p.Lon)
	}
	return d <= c.RadiusMeters
}

// polygonContains is a ray-casting test in lat/lon space with an explicit
// boundary check first, so point-on-edge is contained regardless of the
// crossing parity.
func polygonContains(poly domain.Polygon, p domain.GeoPoint) bool {
	n := len(poly.Vertices)
	if n < 3 {
		return false
	}

	for i := 0; i < n; i++ {
		a := poly.Vertices[i]
		b := poly.Vertices[(i+1)%n]
		if onSegment(a, b, p) {
			return true
		}
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi := poly.Vertices[i]
		vj := poly.Vertices[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			x := (vj.Lon-vi.Lon)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lon
			if p.Lon < x {
				inside = !inside
			}
		}
	}
	return inside
}

const segEpsilon = 1e-12

func onSegment(a, b, p domain.GeoPoint) bool {
	cross := (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
	if math.Abs(cross) > segEpsilon {
		return false
	}
	dot := (p.Lon-a.Lon)*(b.Lon-a.Lon) + (p.Lat-a.Lat)*(b.Lat-a.Lat)
	if dot < 0 {
		return false
	}
	sq := (b.Lon-a.Lon)*(b.Lon-a.Lon) + (b.Lat-a.Lat)*(b.Lat-a.Lat)
	return dot <= sq
}
