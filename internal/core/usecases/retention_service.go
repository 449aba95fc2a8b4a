package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/suuupra/livetrack/internal/core/ports"
)

// RetentionConfig tunes age-based pruning of the location store.
type RetentionConfig struct {
	MaxAge   time.Duration
	Interval time.Duration
}

// RetentionService periodically deletes position samples older than the
// configured age. Live state is unaffected: the latest-only projection
// stays valid even when its backing history has been pruned.
type RetentionService struct {
	locations ports.LocationRepository
	cfg       RetentionConfig
}

// NewRetentionService creates a new RetentionService.
func NewRetentionService(locations ports.LocationRepository, cfg RetentionConfig) *RetentionService {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	return &RetentionService{locations: locations, cfg: cfg}
}

// PruneOnce deletes samples older than MaxAge and returns how many rows
// were removed.
func (s *RetentionService) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.cfg.MaxAge)
	return s.locations.DeleteOlderThan(ctx, cutoff)
}

// Run prunes on the configured interval until ctx is canceled.
func (s *RetentionService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PruneOnce(ctx)
			if err != nil {
				slog.Warn("retention prune failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("retention prune complete", "samples_deleted", n, "max_age", s.cfg.MaxAge.String())
			}
		}
	}
}
