package domain

import "time"

// ShapeKind discriminates geofence geometry variants.
type ShapeKind string

const (
	ShapeCircle  ShapeKind = "circle"
	ShapePolygon ShapeKind = "polygon"
)

// Circle is a geofence region defined by a center and radius.
type Circle struct {
	Center       GeoPoint `json:"center"`
	RadiusMeters float64  `json:"radius_meters"`
}

// Polygon is a geofence region defined by an ordered vertex sequence.
// The closing edge from the last vertex back to the first is implicit.
type Polygon struct {
	Vertices []GeoPoint `json:"vertices"`
}

// Shape is the tagged geometry variant of a geofence. Exactly one of
// Circle or Polygon is set, matching Kind.
type Shape struct {
	Kind    ShapeKind `json:"kind"`
	Circle  *Circle   `json:"circle,omitempty"`
	Polygon *Polygon  `json:"polygon,omitempty"`
}

// Geofence is a registered spatial region. The shape is immutable once
// created; an update is a new geofence.
type Geofence struct {
	ID          string    `json:"id"`
	EntityScope string    `json:"entity_scope,omitempty"` // "" = all entities
	Name        string    `json:"name,omitempty"`
	Shape       Shape     `json:"shape"`
	CreatedAt   time.Time `json:"created_at"`
}
