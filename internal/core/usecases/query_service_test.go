package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/core/geofence"
	"github.com/suuupra/livetrack/internal/core/livestate"
	"github.com/suuupra/livetrack/internal/core/ports"
	"github.com/suuupra/livetrack/internal/core/usecases"
)

// --- Mock CacheService ---

type mockCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gets  int
	sets  int
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.store[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.store[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

// --- Tests ---

func TestQuery_CurrentLocation(t *testing.T) {
	live := livestate.NewCache()
	live.Update(&domain.PositionSample{
		ID: "s1", EntityID: "bus-1", Latitude: 43.263, Longitude: -2.935,
		CapturedAt: time.Now().UTC(),
	})
	svc := usecases.NewQueryService(live, &mockLocationRepo{}, geofence.NewIndex(0.5), nil)

	st, err := svc.CurrentLocation(context.Background(), "bus-1")
	if err != nil {
		t.Fatalf("current location: %v", err)
	}
	if st.LatestSample.ID != "s1" {
		t.Errorf("unexpected sample: %s", st.LatestSample.ID)
	}
}

func TestQuery_CurrentLocationUnknownEntity(t *testing.T) {
	svc := usecases.NewQueryService(livestate.NewCache(), &mockLocationRepo{}, geofence.NewIndex(0.5), nil)

	_, err := svc.CurrentLocation(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQuery_CurrentLocationEmptyEntity(t *testing.T) {
	svc := usecases.NewQueryService(livestate.NewCache(), &mockLocationRepo{}, geofence.NewIndex(0.5), nil)

	_, err := svc.CurrentLocation(context.Background(), "")
	ve, ok := domain.AsValidation(err)
	if !ok || ve.Reason != domain.RejectInvalidEntity {
		t.Fatalf("expected InvalidEntity, got %v", err)
	}
}

func TestQuery_CurrentLocationIdempotent(t *testing.T) {
	live := livestate.NewCache()
	live.Update(&domain.PositionSample{
		ID: "s1", EntityID: "bus-1", Latitude: 43.263, Longitude: -2.935,
		CapturedAt: time.Now().UTC(),
	})
	svc := usecases.NewQueryService(live, &mockLocationRepo{}, geofence.NewIndex(0.5), nil)

	a, _ := svc.CurrentLocation(context.Background(), "bus-1")
	b, _ := svc.CurrentLocation(context.Background(), "bus-1")
	if a.LatestSample.ID != b.LatestSample.ID || !a.UpdatedAt.Equal(b.UpdatedAt) {
		t.Error("repeated reads with no writes returned different states")
	}
}

func TestQuery_HistoryClampsLimit(t *testing.T) {
	var gotLimit int
	repo := &mockLocationRepo{
		historyFn: func(ctx context.Context, entityID string, from, to time.Time, cursor string, limit int) (*ports.HistoryPage, error) {
			gotLimit = limit
			return &ports.HistoryPage{}, nil
		},
	}
	svc := usecases.NewQueryService(livestate.NewCache(), repo, geofence.NewIndex(0.5), nil)

	_, _ = svc.History(context.Background(), "bus-1", time.Time{}, time.Time{}, "", 0)
	if gotLimit != 100 {
		t.Errorf("zero limit should default to 100, got %d", gotLimit)
	}

	_, _ = svc.History(context.Background(), "bus-1", time.Time{}, time.Time{}, "", 9999)
	if gotLimit != 100 {
		t.Errorf("oversized limit should fall back to the default, got %d", gotLimit)
	}

	_, _ = svc.History(context.Background(), "bus-1", time.Time{}, time.Time{}, "", 250)
	if gotLimit != 250 {
		t.Errorf("in-range limit should pass through, got %d", gotLimit)
	}
}

func TestQuery_HistoryEmptyEntity(t *testing.T) {
	svc := usecases.NewQueryService(livestate.NewCache(), &mockLocationRepo{}, geofence.NewIndex(0.5), nil)
	_, err := svc.History(context.Background(), "", time.Time{}, time.Time{}, "", 10)
	if _, ok := domain.AsValidation(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuery_HistoryCachesCompletedRanges(t *testing.T) {
	calls := 0
	repo := &mockLocationRepo{
		historyFn: func(ctx context.Context, entityID string, from, to time.Time, cursor string, limit int) (*ports.HistoryPage, error) {
			calls++
			return &ports.HistoryPage{Samples: []domain.PositionSample{{ID: "s1", EntityID: entityID}}}, nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewQueryService(livestate.NewCache(), repo, geofence.NewIndex(0.5), cache)

	from := time.Now().Add(-2 * time.Hour)
	to := time.Now().Add(-time.Hour)

	p1, err := svc.History(context.Background(), "bus-1", from, to, "", 10)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	p2, err := svc.History(context.Background(), "bus-1", from, to, "", 10)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}

	if calls != 1 {
		t.Errorf("completed range hit storage %d times, expected 1", calls)
	}
	if len(p1.Samples) != len(p2.Samples) || p1.Samples[0].ID != p2.Samples[0].ID {
		t.Error("cached page differs from stored page")
	}
}

func TestQuery_HistoryOpenRangeSkipsCache(t *testing.T) {
	calls := 0
	repo := &mockLocationRepo{
		historyFn: func(ctx context.Context, entityID string, from, to time.Time, cursor string, limit int) (*ports.HistoryPage, error) {
			calls++
			return &ports.HistoryPage{}, nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewQueryService(livestate.NewCache(), repo, geofence.NewIndex(0.5), cache)

	// Open-ended (zero `to`): always reads storage.
	_, _ = svc.History(context.Background(), "bus-1", time.Time{}, time.Time{}, "", 10)
	_, _ = svc.History(context.Background(), "bus-1", time.Time{}, time.Time{}, "", 10)
	if calls != 2 {
		t.Errorf("open-ended range should skip the cache, storage calls: %d", calls)
	}
	if cache.sets != 0 {
		t.Errorf("open-ended range was cached %d times", cache.sets)
	}
}

func TestQuery_Stats(t *testing.T) {
	live := livestate.NewCache()
	live.Update(&domain.PositionSample{ID: "s1", EntityID: "bus-1", CapturedAt: time.Now()})
	live.Update(&domain.PositionSample{ID: "s2", EntityID: "bus-2", CapturedAt: time.Now()})

	ix := geofence.NewIndex(0.5)
	_, _ = ix.Register(domain.Shape{
		Kind:   domain.ShapeCircle,
		Circle: &domain.Circle{Center: domain.GeoPoint{Lat: 43.263, Lon: -2.935}, RadiusMeters: 100},
	}, "", "zone")

	svc := usecases.NewQueryService(live, &mockLocationRepo{}, ix, nil)
	stats := svc.Stats()
	if stats.TrackedEntities != 2 {
		t.Errorf("expected 2 tracked entities, got %d", stats.TrackedEntities)
	}
	if stats.Geofences != 1 {
		t.Errorf("expected 1 geofence, got %d", stats.Geofences)
	}
}
