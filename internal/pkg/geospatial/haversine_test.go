package geospatial

import (
	"math"
	"testing"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Bilbao Abando to Donostia: roughly 79 km.
	d := Haversine(43.2630, -2.9350, 43.3183, -1.9812)
	if d < 75_000 || d > 82_000 {
		t.Errorf("Bilbao-Donostia distance %f m outside expected range", d)
	}
}

func TestHaversine_ZeroDistance(t *testing.T) {
	if d := Haversine(43.263, -2.935, 43.263, -2.935); d != 0 {
		t.Errorf("identical points have distance %f", d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Haversine(43.2630, -2.9350, 48.8566, 2.3522)
	b := Haversine(48.8566, 2.3522, 43.2630, -2.9350)
	if math.Abs(a-b) > 1e-6 {
		t.Errorf("haversine not symmetric: %f vs %f", a, b)
	}
}

func TestEquirectangular_MatchesHaversineNearby(t *testing.T) {
	// Within a few km the approximation should sit within 0.1% of the
	// great-circle distance.
	lat1, lon1 := 43.2630, -2.9350
	lat2, lon2 := 43.2720, -2.9230

	h := Haversine(lat1, lon1, lat2, lon2)
	e := Equirectangular(lat1, lon1, lat2, lon2)
	if math.Abs(h-e)/h > 0.001 {
		t.Errorf("equirectangular %f deviates from haversine %f by more than 0.1%%", e, h)
	}
}

func TestBoundingBox_ContainsCircle(t *testing.T) {
	lat, lon, radius := 43.2630, -2.9350, 500.0
	minLat, minLon, maxLat, maxLon := BoundingBox(lat, lon, radius)

	if minLat >= lat || maxLat <= lat || minLon >= lon || maxLon <= lon {
		t.Fatalf("box does not surround center: [%f %f %f %f]", minLat, minLon, maxLat, maxLon)
	}

	// Box edges sit at roughly the radius from the center (the box uses
	// a slightly larger meters-per-degree constant than the sphere model,
	// so allow 1% slack).
	if d := Haversine(lat, lon, maxLat, lon); d < radius*0.99 {
		t.Errorf("north edge only %f m from center, radius %f", d, radius)
	}
	if d := Haversine(lat, lon, lat, maxLon); d < radius*0.99 {
		t.Errorf("east edge only %f m from center, radius %f", d, radius)
	}
}
