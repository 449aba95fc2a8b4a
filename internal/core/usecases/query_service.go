package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/core/geofence"
	"github.com/suuupra/livetrack/internal/core/livestate"
	"github.com/suuupra/livetrack/internal/core/ports"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

// QueryService serves current-location and historical-range reads.
// Current-location reads touch the live state cache only; history reads
// page through the location store by cursor.
type QueryService struct {
	live      *livestate.Cache
	locations ports.LocationRepository
	index     *geofence.Index
	cache     ports.CacheService // optional page cache
}

// NewQueryService creates a new QueryService. cache may be nil.
func NewQueryService(live *livestate.Cache, locations ports.LocationRepository, index *geofence.Index, cache ports.CacheService) *QueryService {
	return &QueryService{live: live, locations: locations, index: index, cache: cache}
}

// CurrentLocation returns the entity's live state, or domain.ErrNotFound.
// It never touches durable storage.
func (s *QueryService) CurrentLocation(ctx context.Context, entityID string) (*domain.EntityLiveState, error) {
	if entityID == "" {
		return nil, domain.NewValidationError(domain.RejectInvalidEntity, "entity_id must not be empty")
	}
	return s.live.Get(entityID)
}

// History returns one page of the entity's samples within [from, to],
// ascending by (captured_at, received_at). A zero `to` means unbounded.
// The returned cursor resumes the scan and survives caller cancellation.
func (s *QueryService) History(ctx context.Context, entityID string, from, to time.Time, cursor string, limit int) (*ports.HistoryPage, error) {
	if entityID == "" {
		return nil, domain.NewValidationError(domain.RejectInvalidEntity, "entity_id must not be empty")
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	// Completed time ranges are immutable, so pages are safe to cache
	// briefly. Open-ended ranges are not cached.
	var cacheKey string
	if s.cache != nil && !to.IsZero() && to.Before(time.Now()) {
		cacheKey = fmt.Sprintf("history:%s:%d:%d:%s:%d", entityID, from.UnixNano(), to.UnixNano(), cursor, limit)
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var page ports.HistoryPage
			if err := json.Unmarshal(data, &page); err == nil {
				return &page, nil
			}
		}
	}

	page, err := s.locations.History(ctx, entityID, from, to, cursor, limit)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		if data, err := json.Marshal(page); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return page, nil
}

// Stats summarizes the engine's working set.
type Stats struct {
	TrackedEntities int `json:"tracked_entities"`
	Geofences       int `json:"geofences"`
}

// Stats returns counts of tracked entities and registered geofences.
func (s *QueryService) Stats() Stats {
	return Stats{
		TrackedEntities: s.live.Len(),
		Geofences:       s.index.Len(),
	}
}
