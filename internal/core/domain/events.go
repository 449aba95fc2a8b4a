package domain

import "time"

// TransitionKind marks the direction of a geofence containment flip.
type TransitionKind string

const (
	TransitionEnter TransitionKind = "ENTER"
	TransitionExit  TransitionKind = "EXIT"
)

// GeofenceTransitionEvent is emitted once per detected containment flip.
// It is derived from samples and never stored as primary data.
type GeofenceTransitionEvent struct {
	EntityID   string         `json:"entity_id"`
	GeofenceID string         `json:"geofence_id"`
	Kind       TransitionKind `json:"kind"`
	At         time.Time      `json:"at"`
	SampleID   string         `json:"sample_id"`
}
