package livestate_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/core/livestate"
)

func sampleAt(entityID string, capturedAt time.Time) *domain.PositionSample {
	return &domain.PositionSample{
		ID:         "s-" + capturedAt.Format("150405.000000000"),
		EntityID:   entityID,
		Latitude:   43.263,
		Longitude:  -2.935,
		CapturedAt: capturedAt,
		ReceivedAt: time.Now().UTC(),
	}
}

func TestCache_GetUnknownEntity(t *testing.T) {
	c := livestate.NewCache()
	_, err := c.Get("ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCache_UpdateAdvances(t *testing.T) {
	c := livestate.NewCache()
	base := time.Now().UTC()

	if !c.Update(sampleAt("bus-1", base)) {
		t.Fatal("first update should advance")
	}
	if !c.Update(sampleAt("bus-1", base.Add(time.Second))) {
		t.Fatal("newer sample should advance")
	}

	st, err := c.Get("bus-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.LatestSample.CapturedAt.Equal(base.Add(time.Second)) {
		t.Errorf("expected latest captured_at %v, got %v", base.Add(time.Second), st.LatestSample.CapturedAt)
	}
}

func TestCache_StaleSampleDoesNotRegress(t *testing.T) {
	c := livestate.NewCache()
	base := time.Now().UTC()

	c.Update(sampleAt("bus-1", base.Add(time.Minute)))
	if c.Update(sampleAt("bus-1", base)) {
		t.Fatal("older sample must not advance live state")
	}

	st, _ := c.Get("bus-1")
	if !st.LatestSample.CapturedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("live state regressed to %v", st.LatestSample.CapturedAt)
	}
}

func TestCache_EqualCapturedAtAdvances(t *testing.T) {
	c := livestate.NewCache()
	at := time.Now().UTC()

	first := sampleAt("bus-1", at)
	second := sampleAt("bus-1", at)
	second.ID = "second"

	c.Update(first)
	if !c.Update(second) {
		t.Fatal("equal captured_at should still advance (ties accept the later arrival)")
	}

	st, _ := c.Get("bus-1")
	if st.LatestSample.ID != "second" {
		t.Errorf("expected tie to keep the later arrival, got %s", st.LatestSample.ID)
	}
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := livestate.NewCache()
	c.Update(sampleAt("bus-1", time.Now().UTC()))

	st, _ := c.Get("bus-1")
	st.LatestSample.Latitude = 0

	again, _ := c.Get("bus-1")
	if again.LatestSample.Latitude != 43.263 {
		t.Error("mutating a returned state leaked into the cache")
	}
}

func TestCache_RemoveAndLen(t *testing.T) {
	c := livestate.NewCache()
	for i := 0; i < 10; i++ {
		c.Update(sampleAt(fmt.Sprintf("bus-%d", i), time.Now().UTC()))
	}
	if c.Len() != 10 {
		t.Fatalf("expected 10 entities, got %d", c.Len())
	}

	c.Remove("bus-3")
	if c.Len() != 9 {
		t.Fatalf("expected 9 entities after remove, got %d", c.Len())
	}
	if _, err := c.Get("bus-3"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("removed entity still resolvable")
	}
}

func TestCache_ConcurrentEntitiesConverge(t *testing.T) {
	c := livestate.NewCache()
	base := time.Now().UTC()

	var wg sync.WaitGroup
	for e := 0; e < 8; e++ {
		entityID := fmt.Sprintf("bus-%d", e)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Update(sampleAt(entityID, base.Add(time.Duration(i)*time.Millisecond)))
			}
		}()
	}
	wg.Wait()

	for e := 0; e < 8; e++ {
		st, err := c.Get(fmt.Sprintf("bus-%d", e))
		if err != nil {
			t.Fatalf("entity bus-%d missing: %v", e, err)
		}
		if !st.LatestSample.CapturedAt.Equal(base.Add(99 * time.Millisecond)) {
			t.Errorf("bus-%d did not converge to max captured_at: %v", e, st.LatestSample.CapturedAt)
		}
	}
}
