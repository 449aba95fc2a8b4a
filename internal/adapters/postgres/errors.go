package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/suuupra/livetrack/internal/core/domain"
)

// Postgres error classes that indicate pressure or lost connectivity
// rather than a bad statement. Class 08 is connection exceptions; the
// two 5x codes cover pool exhaustion and a server that is starting up
// or shutting down.
func isRetryableCode(code string) bool {
	switch code {
	case "53300", // too_many_connections
		"57P03": // cannot_connect_now
		return true
	}
	return len(code) >= 2 && code[:2] == "08"
}

// wrapStorageErr classifies err for the ingestion pipeline's retry
// policy: timeouts, connection exhaustion, and dropped connections come
// back as domain.TransientStorageError, everything else is wrapped
// verbatim.
func wrapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
	case pgconn.Timeout(err):
	case errors.As(err, &pgErr) && isRetryableCode(pgErr.Code):
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
	return &domain.TransientStorageError{Op: op, Err: err}
}
