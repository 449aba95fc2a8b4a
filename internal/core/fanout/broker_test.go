package fanout_test

import (
	"testing"
	"time"

	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/core/fanout"
)

func sample(entityID, id string) *domain.PositionSample {
	return &domain.PositionSample{
		ID:         id,
		EntityID:   entityID,
		Latitude:   43.263,
		Longitude:  -2.935,
		CapturedAt: time.Now().UTC(),
	}
}

func drain(sub *fanout.Subscription) []fanout.Event {
	var out []fanout.Event
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestBroker_DeliversToEntitySubscriber(t *testing.T) {
	b := fanout.NewBroker(8)
	defer b.Close()

	sub := b.Subscribe("bus-1")
	b.PublishSample(sample("bus-1", "s1"))
	b.PublishSample(sample("bus-2", "s2")) // different entity, filtered out

	got := drain(sub)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Kind != fanout.KindPosition || got[0].Sample.ID != "s1" {
		t.Errorf("unexpected event: %+v", got[0])
	}
}

func TestBroker_WildcardSubscriberSeesAll(t *testing.T) {
	b := fanout.NewBroker(8)
	defer b.Close()

	sub := b.Subscribe("")
	b.PublishSample(sample("bus-1", "s1"))
	b.PublishSample(sample("bus-2", "s2"))

	if got := drain(sub); len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
}

func TestBroker_TransitionEvents(t *testing.T) {
	b := fanout.NewBroker(8)
	defer b.Close()

	sub := b.Subscribe("bus-1")
	b.PublishTransition(&domain.GeofenceTransitionEvent{
		EntityID:   "bus-1",
		GeofenceID: "gf-1",
		Kind:       domain.TransitionEnter,
		At:         time.Now().UTC(),
	})

	got := drain(sub)
	if len(got) != 1 || got[0].Kind != fanout.KindTransition {
		t.Fatalf("expected a transition event, got %+v", got)
	}
	if got[0].Transition.GeofenceID != "gf-1" {
		t.Errorf("unexpected geofence ID: %s", got[0].Transition.GeofenceID)
	}
}

func TestBroker_OverflowEmitsGapMarker(t *testing.T) {
	b := fanout.NewBroker(4)
	defer b.Close()

	sub := b.Subscribe("bus-1")

	// Publish well past capacity without consuming.
	for i := 0; i < 10; i++ {
		b.PublishSample(sample("bus-1", "s"))
	}

	got := drain(sub)

	// Drops pending at drain time surface as a gap before the next
	// delivery, so publish once more into the now-empty queue.
	b.PublishSample(sample("bus-1", "flush"))
	got = append(got, drain(sub)...)

	var gaps, positions int
	var dropped uint64
	for _, ev := range got {
		switch ev.Kind {
		case fanout.KindGap:
			gaps++
			dropped += ev.Dropped
		case fanout.KindPosition:
			positions++
		}
	}

	if gaps == 0 {
		t.Fatal("overflow produced no gap marker")
	}
	if dropped == 0 {
		t.Fatal("gap marker carries no drop count")
	}
	// Everything published is accounted for: delivered + dropped.
	if int(dropped)+positions != 11 {
		t.Errorf("accounting mismatch: %d delivered + %d dropped != 11", positions, dropped)
	}
}

func TestBroker_GapPrecedesNextEvent(t *testing.T) {
	b := fanout.NewBroker(2)
	defer b.Close()

	sub := b.Subscribe("bus-1")
	for i := 0; i < 5; i++ {
		b.PublishSample(sample("bus-1", "s"))
	}

	got := drain(sub)
	if len(got) == 0 {
		t.Fatal("no events delivered")
	}

	// Once a gap frame appears, it must come before the following
	// position event, never after the stream's end.
	for i, ev := range got {
		if ev.Kind == fanout.KindGap && i == len(got)-1 {
			continue // trailing gap is allowed when nothing was published after
		}
		if ev.Kind == fanout.KindGap && got[i+1].Kind == fanout.KindGap {
			t.Error("two consecutive gap frames")
		}
	}
}

func TestBroker_SlowSubscriberNeverBlocksPublish(t *testing.T) {
	b := fanout.NewBroker(1)
	defer b.Close()

	_ = b.Subscribe("bus-1") // never consumed

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.PublishSample(sample("bus-1", "s"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestBroker_UnsubscribeClosesChannel(t *testing.T) {
	b := fanout.NewBroker(4)
	defer b.Close()

	sub := b.Subscribe("bus-1")
	b.Unsubscribe(sub)

	if _, ok := <-sub.Events(); ok {
		t.Error("channel still open after Unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}

	// Publishing after unsubscribe must not panic.
	b.PublishSample(sample("bus-1", "s"))
}

func TestBroker_CloseTearsDownAllSubscriptions(t *testing.T) {
	b := fanout.NewBroker(4)
	s1 := b.Subscribe("bus-1")
	s2 := b.Subscribe("")

	b.Close()

	for _, sub := range []*fanout.Subscription{s1, s2} {
		if _, ok := <-sub.Events(); ok {
			t.Error("subscription channel open after broker Close")
		}
	}
}
