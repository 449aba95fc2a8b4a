package geofence

import (
	"sync"

	"github.com/suuupra/livetrack/internal/core/domain"
)

// Monitor tracks the containment set per entity and turns successive
// position samples into ENTER/EXIT transition events. The ingestion
// pipeline serializes calls per entity, so the diff for one entity is
// always computed against its previous accepted sample.
type Monitor struct {
	index *Index

	mu   sync.Mutex
	held map[string]map[string]struct{} // entity -> geofence IDs currently containing it
}

// NewMonitor creates a monitor over the given index.
func NewMonitor(index *Index) *Monitor {
	return &Monitor{
		index: index,
		held:  make(map[string]map[string]struct{}),
	}
}

// Evaluate computes the containment set for the sample's position, diffs
// it against the entity's previous set, and returns one event per flip.
func (m *Monitor) Evaluate(sample *domain.PositionSample) []domain.GeofenceTransitionEvent {
	current := m.index.Containing(sample.Point(), sample.EntityID)

	m.mu.Lock()
	previous := m.held[sample.EntityID]
	m.held[sample.EntityID] = current
	m.mu.Unlock()

	var events []domain.GeofenceTransitionEvent
	for id := range current {
		if _, was := previous[id]; !was {
			events = append(events, domain.GeofenceTransitionEvent{
				EntityID:   sample.EntityID,
				GeofenceID: id,
				Kind:       domain.TransitionEnter,
				At:         sample.CapturedAt,
				SampleID:   sample.ID,
			})
		}
	}
	for id := range previous {
		if _, still := current[id]; !still {
			events = append(events, domain.GeofenceTransitionEvent{
				EntityID:   sample.EntityID,
				GeofenceID: id,
				Kind:       domain.TransitionExit,
				At:         sample.CapturedAt,
				SampleID:   sample.ID,
			})
		}
	}
	return events
}

// Forget drops an entity's containment state, e.g. when it is pruned.
func (m *Monitor) Forget(entityID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, entityID)
}
