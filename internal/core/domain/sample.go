package domain

import (
	"time"
)

// PositionSample is a single position report for a tracked entity.
// Samples are immutable once accepted; history ordering is
// (entity_id, captured_at, received_at).
type PositionSample struct {
	ID             string    `json:"id"`
	EntityID       string    `json:"entity_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Altitude       *float64  `json:"altitude,omitempty"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Point returns the sample's coordinates.
func (s *PositionSample) Point() GeoPoint {
	return GeoPoint{Lat: s.Latitude, Lon: s.Longitude}
}

// EntityLiveState is the most recent known position of an entity.
// It is a lossy, latest-only projection of the location store.
type EntityLiveState struct {
	EntityID     string         `json:"entity_id"`
	LatestSample PositionSample `json:"latest_sample"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
