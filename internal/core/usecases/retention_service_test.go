package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/suuupra/livetrack/internal/core/usecases"
)

type mockPruner struct {
	mockLocationRepo
	cutoffs []time.Time
	deleteN int64
	err     error
}

func (m *mockPruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.cutoffs = append(m.cutoffs, cutoff)
	return m.deleteN, m.err
}

func TestRetention_PruneOnce(t *testing.T) {
	repo := &mockPruner{deleteN: 42}
	svc := usecases.NewRetentionService(repo, usecases.RetentionConfig{MaxAge: 24 * time.Hour})

	n, err := svc.PruneOnce(context.Background())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 42 {
		t.Errorf("expected 42 deleted, got %d", n)
	}
	if len(repo.cutoffs) != 1 {
		t.Fatalf("expected 1 delete call, got %d", len(repo.cutoffs))
	}

	// The cutoff lands MaxAge in the past, give or take scheduling.
	want := time.Now().Add(-24 * time.Hour)
	if d := repo.cutoffs[0].Sub(want); d < -time.Minute || d > time.Minute {
		t.Errorf("cutoff %v not ~24h ago", repo.cutoffs[0])
	}
}

func TestRetention_PruneOncePropagatesError(t *testing.T) {
	repo := &mockPruner{err: errors.New("db down")}
	svc := usecases.NewRetentionService(repo, usecases.RetentionConfig{MaxAge: time.Hour})

	if _, err := svc.PruneOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetention_RunStopsOnCancel(t *testing.T) {
	repo := &mockPruner{}
	svc := usecases.NewRetentionService(repo, usecases.RetentionConfig{
		MaxAge:   time.Hour,
		Interval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if len(repo.cutoffs) == 0 {
		t.Error("Run never pruned")
	}
}
