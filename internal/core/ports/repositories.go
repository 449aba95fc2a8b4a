package ports

import (
	"context"
	"time"

	"github.com/suuupra/livetrack/internal/core/domain"
)

// HistoryPage is one page of an entity's position history, ordered by
// ascending (captured_at, received_at). NextCursor is empty on the last
// page; otherwise it resumes the scan after the page's final sample and
// stays valid across caller cancellation.
type HistoryPage struct {
	Samples    []domain.PositionSample
	NextCursor string
}

// LocationRepository is the durable, append-only record of position
// samples. It is the source of truth for history and must never lose an
// accepted sample: Append returns an error when durability is not
// confirmed, wrapped in domain.TransientStorageError when retryable.
type LocationRepository interface {
	Append(ctx context.Context, sample *domain.PositionSample) error
	History(ctx context.Context, entityID string, from, to time.Time, cursor string, limit int) (*HistoryPage, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GeofenceRepository persists geofence definitions so the in-memory
// index can be rebuilt at startup.
type GeofenceRepository interface {
	Insert(ctx context.Context, g *domain.Geofence) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Geofence, error)
}
