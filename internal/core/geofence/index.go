package geofence

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suuupra/livetrack/internal/core/domain"
)

// DefaultCellDegrees is the grid cell size used when none is configured.
// 0.5 degrees is roughly 55 km of latitude; fine enough to prune most
// candidates for city-scale geofences, coarse enough to keep the cell
// map small.
const DefaultCellDegrees = 0.5

type cellKey struct {
	latIdx int
	lonIdx int
}

// Index holds registered geofences bucketed into a coarse lat/lon grid
// keyed by shape bounding box. Containing queries only run precise
// containment tests against candidates sharing the query point's cell,
// never a linear scan over every geofence.
type Index struct {
	mu       sync.RWMutex
	cellDeg  float64
	fences   map[string]*domain.Geofence
	cells    map[cellKey]map[string]struct{}
	cellsFor map[string][]cellKey
}

// NewIndex creates an empty index with the given grid cell size in
// degrees. Non-positive values fall back to DefaultCellDegrees.
func NewIndex(cellDegrees float64) *Index {
	if cellDegrees <= 0 {
		cellDegrees = DefaultCellDegrees
	}
	return &Index{
		cellDeg:  cellDegrees,
		fences:   make(map[string]*domain.Geofence),
		cells:    make(map[cellKey]map[string]struct{}),
		cellsFor: make(map[string][]cellKey),
	}
}

func (ix *Index) cellOf(p domain.GeoPoint) cellKey {
	return cellKey{
		latIdx: int(math.Floor(p.Lat / ix.cellDeg)),
		lonIdx: int(math.Floor(p.Lon / ix.cellDeg)),
	}
}

func (ix *Index) cellsForBounds(b domain.Bounds) []cellKey {
	lo := ix.cellOf(domain.GeoPoint{Lat: b.MinLat, Lon: b.MinLon})
	hi := ix.cellOf(domain.GeoPoint{Lat: b.MaxLat, Lon: b.MaxLon})
	keys := make([]cellKey, 0, (hi.latIdx-lo.latIdx+1)*(hi.lonIdx-lo.lonIdx+1))
	for la := lo.latIdx; la <= hi.latIdx; la++ {
		for lo2 := lo.lonIdx; lo2 <= hi.lonIdx; lo2++ {
			keys = append(keys, cellKey{latIdx: la, lonIdx: lo2})
		}
	}
	return keys
}

// Register validates the shape, assigns an ID, and adds the geofence to
// the grid. Invalid geometry is rejected with InvalidShape.
func (ix *Index) Register(shape domain.Shape, entityScope, name string) (*domain.Geofence, error) {
	if err := ValidateShape(shape); err != nil {
		return nil, err
	}

	g := &domain.Geofence{
		ID:          uuid.NewString(),
		EntityScope: entityScope,
		Name:        name,
		Shape:       shape,
		CreatedAt:   time.Now().UTC(),
	}
	ix.Add(g)
	return g, nil
}

// Add inserts an already-validated geofence, e.g. when reloading
// persisted definitions at startup.
func (ix *Index) Add(g *domain.Geofence) {
	keys := ix.cellsForBounds(ShapeBounds(g.Shape))

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.fences[g.ID] = g
	ix.cellsFor[g.ID] = keys
	for _, k := range keys {
		set, ok := ix.cells[k]
		if !ok {
			set = make(map[string]struct{})
			ix.cells[k] = set
		}
		set[g.ID] = struct{}{}
	}
}

// Remove deletes a geofence from the index. Returns domain.ErrNotFound
// for unknown IDs.
func (ix *Index) Remove(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.fences[id]; !ok {
		return domain.ErrNotFound
	}
	for _, k := range ix.cellsFor[id] {
		delete(ix.cells[k], id)
		if len(ix.cells[k]) == 0 {
			delete(ix.cells, k)
		}
	}
	delete(ix.cellsFor, id)
	delete(ix.fences, id)
	return nil
}

// Get returns a registered geofence by ID.
func (ix *Index) Get(id string) (*domain.Geofence, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	g, ok := ix.fences[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

// Containing returns the IDs of geofences containing p whose scope
// matches entityID (empty scope matches every entity).
func (ix *Index) Containing(p domain.GeoPoint, entityID string) map[string]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make(map[string]struct{})
	for id := range ix.cells[ix.cellOf(p)] {
		g := ix.fences[id]
		if g.EntityScope != "" && g.EntityScope != entityID {
			continue
		}
		if Contains(g.Shape, p) {
			out[id] = struct{}{}
		}
	}
	return out
}

// List returns registered geofences, optionally filtered by entity scope.
func (ix *Index) List(entityScope string) []domain.Geofence {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]domain.Geofence, 0, len(ix.fences))
	for _, g := range ix.fences {
		if entityScope != "" && g.EntityScope != "" && g.EntityScope != entityScope {
			continue
		}
		out = append(out, *g)
	}
	return out
}

// Len returns the number of registered geofences.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.fences)
}
