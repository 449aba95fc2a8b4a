package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/core/geofence"
	"github.com/suuupra/livetrack/internal/core/ports"
	"github.com/suuupra/livetrack/internal/pkg/metrics"
)

// GeofenceService manages geofence registration. Shapes are validated up
// front, persisted, and only then made visible to the in-memory index so
// a restart can always rebuild the same set.
type GeofenceService struct {
	index *geofence.Index
	repo  ports.GeofenceRepository // optional; nil = in-memory only
}

// NewGeofenceService creates a new GeofenceService.
func NewGeofenceService(index *geofence.Index, repo ports.GeofenceRepository) *GeofenceService {
	return &GeofenceService{index: index, repo: repo}
}

// Register validates and registers a geofence. Invalid geometry returns
// a ValidationError with reason InvalidShape.
func (s *GeofenceService) Register(ctx context.Context, shape domain.Shape, entityScope, name string) (*domain.Geofence, error) {
	if err := geofence.ValidateShape(shape); err != nil {
		return nil, err
	}

	g := &domain.Geofence{
		ID:          uuid.NewString(),
		EntityScope: entityScope,
		Name:        name,
		Shape:       shape,
		CreatedAt:   time.Now().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.Insert(ctx, g); err != nil {
			return nil, fmt.Errorf("persist geofence: %w", err)
		}
	}
	s.index.Add(g)
	metrics.GeofencesRegistered.Set(float64(s.index.Len()))
	return g, nil
}

// Remove deletes a geofence from the index and from durable storage.
func (s *GeofenceService) Remove(ctx context.Context, id string) error {
	if err := s.index.Remove(id); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete geofence %s: %w", id, err)
		}
	}
	metrics.GeofencesRegistered.Set(float64(s.index.Len()))
	return nil
}

// Get returns a geofence by ID.
func (s *GeofenceService) Get(ctx context.Context, id string) (*domain.Geofence, error) {
	return s.index.Get(id)
}

// List returns registered geofences, optionally filtered by entity scope.
func (s *GeofenceService) List(ctx context.Context, entityScope string) []domain.Geofence {
	return s.index.List(entityScope)
}

// LoadPersisted rebuilds the index from durable storage at startup.
func (s *GeofenceService) LoadPersisted(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	fences, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("load geofences: %w", err)
	}
	for i := range fences {
		s.index.Add(&fences[i])
	}
	metrics.GeofencesRegistered.Set(float64(s.index.Len()))
	return len(fences), nil
}
