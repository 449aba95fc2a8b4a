package postgres

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/core/ports"
)

// ErrInvalidCursor is returned when a history page token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid history cursor")

// LocationRepo implements ports.LocationRepository on the
// location_samples table. Appends are durable once Exec returns; history
// pages use a keyset over (captured_at, received_at) so no scan ever
// loads an entity's full history.
type LocationRepo struct {
	db *DB
}

func NewLocationRepo(db *DB) *LocationRepo {
	return &LocationRepo{db: db}
}

func (r *LocationRepo) Append(ctx context.Context, s *domain.PositionSample) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO location_samples
			(id, entity_id, latitude, longitude, altitude, accuracy_meters, captured_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.EntityID, s.Latitude, s.Longitude, s.Altitude, s.AccuracyMeters,
		s.CapturedAt, s.ReceivedAt)
	return wrapStorageErr("append location sample", err)
}

func (r *LocationRepo) History(ctx context.Context, entityID string, from, to time.Time, cursor string, limit int) (*ports.HistoryPage, error) {
	afterCaptured, afterReceived, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if to.IsZero() {
		// Unbounded upper range; captured_at is never this far out
		// because of the ingest skew check.
		to = time.Now().Add(24 * time.Hour * 365 * 100)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, entity_id, latitude, longitude, altitude, accuracy_meters, captured_at, received_at
		FROM location_samples
		WHERE entity_id = $1
		  AND captured_at >= $2
		  AND captured_at <= $3
		  AND (captured_at, received_at) > ($4, $5)
		ORDER BY captured_at, received_at
		LIMIT $6
	`, entityID, from, to, afterCaptured, afterReceived, limit+1)
	if err != nil {
		return nil, wrapStorageErr("query location history", err)
	}
	defer rows.Close()

	samples := make([]domain.PositionSample, 0, limit)
	for rows.Next() {
		var s domain.PositionSample
		if err := rows.Scan(
			&s.ID, &s.EntityID, &s.Latitude, &s.Longitude,
			&s.Altitude, &s.AccuracyMeters, &s.CapturedAt, &s.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan location sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorageErr("read location history", err)
	}

	page := &ports.HistoryPage{}
	if len(samples) > limit {
		samples = samples[:limit]
		last := samples[len(samples)-1]
		page.NextCursor = encodeCursor(last.CapturedAt, last.ReceivedAt)
	}
	page.Samples = samples
	return page, nil
}

func (r *LocationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM location_samples WHERE captured_at < $1
	`, cutoff)
	if err != nil {
		return 0, wrapStorageErr("delete old location samples", err)
	}
	return tag.RowsAffected(), nil
}

// Cursor tokens are opaque to clients: base64 over the last row's
// (captured_at, received_at) in unix nanoseconds.
func encodeCursor(capturedAt, receivedAt time.Time) string {
	raw := strconv.FormatInt(capturedAt.UnixNano(), 10) + "|" + strconv.FormatInt(receivedAt.UnixNano(), 10)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (capturedAt, receivedAt time.Time, err error) {
	if cursor == "" {
		// Before any real sample; timestamps are never at unix zero.
		return time.Unix(0, 0).UTC(), time.Unix(0, 0).UTC(), nil
	}
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, ErrInvalidCursor
	}
	cNano, err1 := strconv.ParseInt(parts[0], 10, 64)
	rNano, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, ErrInvalidCursor
	}
	return time.Unix(0, cNano).UTC(), time.Unix(0, rNano).UTC(), nil
}
