package ports

import (
	"context"

	"github.com/suuupra/livetrack/internal/core/domain"
)

// EventPublisher exposes accepted samples and derived events to external
// collaborators (analytics, other service instances) over a broker.
type EventPublisher interface {
	PublishPosition(ctx context.Context, sample *domain.PositionSample) error
	PublishTransition(ctx context.Context, ev *domain.GeofenceTransitionEvent) error
}

// CacheService provides read-through caching and the cross-instance
// latest-position mirror.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
