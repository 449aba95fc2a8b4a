package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/core/fanout"
	"github.com/suuupra/livetrack/internal/core/geofence"
	"github.com/suuupra/livetrack/internal/core/livestate"
	"github.com/suuupra/livetrack/internal/core/ports"
	"github.com/suuupra/livetrack/internal/pkg/metrics"
)

const entityLockStripes = 256

// IngestConfig tunes validation and durable-write retry behavior.
type IngestConfig struct {
	// MaxClockSkew is how far in the future a captured_at may lie before
	// the sample is rejected with ClockSkew.
	MaxClockSkew time.Duration
	// RetryAttempts bounds retries of the durable append on transient
	// storage errors. 0 means a single attempt.
	RetryAttempts int
	// RetryBackoff is the base delay between retries; it grows linearly
	// per attempt.
	RetryBackoff time.Duration
}

// IngestService is the ingestion pipeline: it validates and timestamps
// submissions, appends them durably, advances live state monotonically,
// detects geofence transitions, and fans events out. Submissions for the
// same entity are serialized; different entities never share a lock.
type IngestService struct {
	locations ports.LocationRepository
	live      *livestate.Cache
	monitor   *geofence.Monitor
	broker    *fanout.Broker
	publisher ports.EventPublisher // optional
	cache     ports.CacheService   // optional latest-position mirror
	cfg       IngestConfig

	entityLocks [entityLockStripes]sync.Mutex
}

// NewIngestService creates a new IngestService. publisher and cache may
// be nil; the pipeline degrades to process-local delivery only.
func NewIngestService(
	locations ports.LocationRepository,
	live *livestate.Cache,
	monitor *geofence.Monitor,
	broker *fanout.Broker,
	publisher ports.EventPublisher,
	cache ports.CacheService,
	cfg IngestConfig,
) *IngestService {
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = 30 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	return &IngestService{
		locations: locations,
		live:      live,
		monitor:   monitor,
		broker:    broker,
		publisher: publisher,
		cache:     cache,
		cfg:       cfg,
	}
}

// Submit runs one position report through the pipeline. On success the
// returned sample carries its assigned ID and received_at. Validation
// failures are *domain.ValidationError; a durable-write failure after
// retries is returned as-is and the sample is not visible anywhere.
func (s *IngestService) Submit(ctx context.Context, candidate *domain.PositionSample) (*domain.PositionSample, error) {
	if err := s.validate(candidate); err != nil {
		if ve, ok := domain.AsValidation(err); ok {
			metrics.SamplesRejected.WithLabelValues(string(ve.Reason)).Inc()
		}
		return nil, err
	}

	sample := *candidate
	sample.ID = uuid.NewString()
	sample.ReceivedAt = time.Now().UTC()

	lock := s.lockFor(sample.EntityID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.appendWithRetry(ctx, &sample); err != nil {
		metrics.SamplesFailed.Inc()
		return nil, fmt.Errorf("append sample for %s: %w", sample.EntityID, err)
	}

	advanced := s.live.Update(&sample)

	// Mirror the latest position so other instances and operators can
	// read it without touching durable storage. Best effort.
	if advanced && s.cache != nil {
		if data, err := json.Marshal(&sample); err == nil {
			_ = s.cache.Set(ctx, "live:"+sample.EntityID, data, 3600)
		}
	}

	transitions := s.monitor.Evaluate(&sample)

	s.broker.PublishSample(&sample)
	for i := range transitions {
		s.broker.PublishTransition(&transitions[i])
		metrics.GeofenceTransitions.WithLabelValues(string(transitions[i].Kind)).Inc()
	}

	// External delivery never fails the submission.
	if s.publisher != nil {
		if err := s.publisher.PublishPosition(ctx, &sample); err != nil {
			slog.Warn("publish position failed", "entity_id", sample.EntityID, "error", err)
		}
		for i := range transitions {
			if err := s.publisher.PublishTransition(ctx, &transitions[i]); err != nil {
				slog.Warn("publish transition failed", "entity_id", sample.EntityID, "error", err)
			}
		}
	}

	metrics.SamplesAccepted.Inc()
	if !advanced {
		metrics.SamplesOutOfOrder.Inc()
	}
	return &sample, nil
}

// validate applies the checks in order: coordinate bounds, entity ID,
// clock skew.
func (s *IngestService) validate(c *domain.PositionSample) error {
	if !c.Point().Valid() {
		return domain.NewValidationError(domain.RejectOutOfRange,
			"coordinates (%g, %g) outside valid domain", c.Latitude, c.Longitude)
	}
	if c.EntityID == "" {
		return domain.NewValidationError(domain.RejectInvalidEntity, "entity_id must not be empty")
	}
	if c.AccuracyMeters != nil && *c.AccuracyMeters < 0 {
		return domain.NewValidationError(domain.RejectOutOfRange,
			"accuracy_meters must be >= 0, got %g", *c.AccuracyMeters)
	}
	if c.CapturedAt.After(time.Now().Add(s.cfg.MaxClockSkew)) {
		return domain.NewValidationError(domain.RejectClockSkew,
			"captured_at %s is beyond the %s skew tolerance", c.CapturedAt.Format(time.RFC3339), s.cfg.MaxClockSkew)
	}
	return nil
}

func (s *IngestService) appendWithRetry(ctx context.Context, sample *domain.PositionSample) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.locations.Append(ctx, sample)
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) || attempt >= s.cfg.RetryAttempts {
			return err
		}

		metrics.StorageRetries.Inc()
		backoff := s.cfg.RetryBackoff * time.Duration(attempt+1)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *IngestService) lockFor(entityID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(entityID))
	return &s.entityLocks[h.Sum32()%entityLockStripes]
}
