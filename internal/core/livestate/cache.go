// Package livestate holds the in-memory latest-position projection for
// every actively tracked entity. It is a lossy view over the location
// store: reads are O(1), updates are monotonic per entity by captured_at.
package livestate

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/suuupra/livetrack/internal/core/domain"
)

const shardCount = 64

type shard struct {
	mu      sync.RWMutex
	entries map[string]*domain.EntityLiveState
}

// Cache is a sharded entity -> latest-position map. Updates to different
// entities never contend on the same lock; updates to the same entity are
// serialized by its shard lock, which is never held across I/O.
type Cache struct {
	shards [shardCount]*shard
}

// NewCache creates an empty live state cache.
func NewCache() *Cache {
	c := &Cache{}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*domain.EntityLiveState)}
	}
	return c
}

func (c *Cache) shardFor(entityID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(entityID))
	return c.shards[h.Sum32()%shardCount]
}

// Get returns a copy of the live state for entityID, or
// domain.ErrNotFound if the entity has never reported.
func (c *Cache) Get(entityID string) (*domain.EntityLiveState, error) {
	s := c.shardFor(entityID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.entries[entityID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

// Update installs sample as the entity's live state if its captured_at is
// not older than the currently held one. It returns true when the live
// state advanced, false when the sample was stale (history-only write).
func (c *Cache) Update(sample *domain.PositionSample) bool {
	s := c.shardFor(sample.EntityID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.entries[sample.EntityID]; ok {
		if sample.CapturedAt.Before(cur.LatestSample.CapturedAt) {
			return false
		}
	}
	s.entries[sample.EntityID] = &domain.EntityLiveState{
		EntityID:     sample.EntityID,
		LatestSample: *sample,
		UpdatedAt:    time.Now().UTC(),
	}
	return true
}

// Remove drops an entity from the cache (e.g. after retention pruning).
func (c *Cache) Remove(entityID string) {
	s := c.shardFor(entityID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, entityID)
}

// Len returns the number of tracked entities.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
