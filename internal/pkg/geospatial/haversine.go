// Package geospatial holds the distance math shared by geofence
// containment checks and the spatial index.
package geospatial

import "math"

const earthRadiusMeters = 6371e3

// Haversine returns the great-circle distance in meters between two
// WGS 84 coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	sinLat := math.Sin(radians(lat2-lat1) / 2)
	sinLon := math.Sin(radians(lon2-lon1) / 2)

	a := sinLat*sinLat + math.Cos(radians(lat1))*math.Cos(radians(lat2))*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Equirectangular approximates the distance in meters between two
// nearby points. Cheaper than Haversine and accurate enough for small
// radii (a few kilometers); used for circle containment on small
// geofences.
func Equirectangular(lat1, lon1, lat2, lon2 float64) float64 {
	x := radians(lon2-lon1) * math.Cos(radians((lat1+lat2)/2))
	y := radians(lat2 - lat1)
	return math.Hypot(x, y) * earthRadiusMeters
}

// BoundingBox returns the axis-aligned box around a point that covers
// the given radius in meters. The box errs slightly large near the
// poles, which is fine for index candidate selection.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(radians(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
