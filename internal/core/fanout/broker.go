// Package fanout delivers accepted samples and geofence transitions to
// live subscribers. Each subscriber owns a bounded queue with a
// drop-oldest policy; a slow consumer only ever degrades its own stream
// and can never block a publisher.
package fanout

import (
	"sync"

	"github.com/suuupra/livetrack/internal/core/domain"
)

// EventKind discriminates the frames a subscriber receives.
type EventKind string

const (
	KindPosition   EventKind = "position"
	KindTransition EventKind = "geofence_transition"
	KindGap        EventKind = "gap"
)

// Event is a single frame delivered to a subscriber. Exactly one payload
// field is set, matching Kind. A gap frame reports how many events were
// discarded for this subscriber since its last delivery.
type Event struct {
	Kind       EventKind                       `json:"type"`
	Sample     *domain.PositionSample          `json:"sample,omitempty"`
	Transition *domain.GeofenceTransitionEvent `json:"transition,omitempty"`
	Dropped    uint64                          `json:"dropped,omitempty"`
}

// Subscription is a live event stream filtered by entity ID. It is owned
// by the broker until Close is called or the broker shuts down.
type Subscription struct {
	entityID string // "" matches all entities
	ch       chan Event

	mu      sync.Mutex
	dropped uint64
	closed  bool
}

// Events returns the receive channel. It is closed when the subscription
// is torn down.
func (s *Subscription) Events() <-chan Event { return s.ch }

// deliver enqueues ev, evicting the oldest queued event when full. The
// eviction and the pending-drop accounting happen under the
// subscription's own lock so drop/gap behavior is deterministic.
func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	// Surface prior drops as a gap frame before the next real event.
	// Zero the counter first: evictions caused by inserting the gap
	// itself accrue to the next gap instead of being lost.
	if s.dropped > 0 {
		gap := Event{Kind: KindGap, Dropped: s.dropped}
		s.dropped = 0
		if !s.enqueueLocked(gap) {
			s.dropped += gap.Dropped
		}
	}
	if !s.enqueueLocked(ev) {
		s.dropped++
	}
}

// enqueueLocked makes room by evicting the oldest event, then attempts a
// non-blocking send. It reports whether ev was queued.
func (s *Subscription) enqueueLocked(ev Event) bool {
	for {
		select {
		case s.ch <- ev:
			return true
		default:
		}
		select {
		case old := <-s.ch:
			if old.Kind == KindGap {
				s.dropped += old.Dropped
			} else {
				s.dropped++
			}
		default:
			return false
		}
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Broker is the process-local broadcast point for live events.
type Broker struct {
	bufSize int

	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// DefaultBufferSize is the per-subscriber queue capacity used when none
// is configured.
const DefaultBufferSize = 64

// NewBroker creates a broker whose subscribers each hold a queue of the
// given capacity.
func NewBroker(bufSize int) *Broker {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Broker{
		bufSize: bufSize,
		subs:    make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a stream for one entity, or for all entities when
// entityID is empty.
func (b *Broker) Subscribe(entityID string) *Subscription {
	sub := &Subscription{
		entityID: entityID,
		ch:       make(chan Event, b.bufSize),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe tears down the subscription and releases its queue.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	_, ok := b.subs[sub]
	delete(b.subs, sub)
	b.mu.Unlock()
	if ok {
		sub.close()
	}
}

// PublishSample broadcasts an accepted sample. Publishing is
// fire-and-forget: subscriber state never fails a publish.
func (b *Broker) PublishSample(sample *domain.PositionSample) {
	b.publish(sample.EntityID, Event{Kind: KindPosition, Sample: sample})
}

// PublishTransition broadcasts a geofence transition event.
func (b *Broker) PublishTransition(ev *domain.GeofenceTransitionEvent) {
	b.publish(ev.EntityID, Event{Kind: KindTransition, Transition: ev})
}

func (b *Broker) publish(entityID string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if sub.entityID != "" && sub.entityID != entityID {
			continue
		}
		sub.deliver(ev)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close tears down every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
