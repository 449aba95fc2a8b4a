package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/suuupra/livetrack/internal/core/domain"
)

func TestWrapStorageErr_Nil(t *testing.T) {
	if err := wrapStorageErr("op", nil); err != nil {
		t.Fatalf("nil error wrapped: %v", err)
	}
}

func TestWrapStorageErr_TransientClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"deadline", context.DeadlineExceeded},
		{"wrapped deadline", fmt.Errorf("exec: %w", context.DeadlineExceeded)},
		{"too_many_connections", &pgconn.PgError{Code: "53300"}},
		{"cannot_connect_now", &pgconn.PgError{Code: "57P03"}},
		{"connection_failure", &pgconn.PgError{Code: "08006"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := wrapStorageErr("append", tc.err)
			if !domain.IsTransient(err) {
				t.Errorf("%v not classified transient", tc.err)
			}
		})
	}
}

func TestWrapStorageErr_PermanentErrorsPassThrough(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"unique_violation", &pgconn.PgError{Code: "23505"}},
		{"syntax_error", &pgconn.PgError{Code: "42601"}},
		{"plain error", errors.New("boom")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := wrapStorageErr("append", tc.err)
			if domain.IsTransient(err) {
				t.Errorf("%v wrongly classified transient", tc.err)
			}
			if !errors.Is(err, tc.err) {
				t.Errorf("original error lost from chain: %v", err)
			}
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	captured, received := mustTime(t, "2026-08-01T10:00:00.123456789Z"), mustTime(t, "2026-08-01T10:00:01.987654321Z")

	token := encodeCursor(captured, received)
	gotCaptured, gotReceived, err := decodeCursor(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !gotCaptured.Equal(captured) || !gotReceived.Equal(received) {
		t.Errorf("round trip lost precision: %v %v", gotCaptured, gotReceived)
	}
}

func TestDecodeCursor_EmptyMeansStart(t *testing.T) {
	captured, received, err := decodeCursor("")
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if captured.UnixNano() != 0 || received.UnixNano() != 0 {
		t.Error("empty cursor does not start before all samples")
	}
}

func TestDecodeCursor_Garbage(t *testing.T) {
	for _, token := range []string{"not-base64!!", "aGVsbG8", "MTIzNA=="} {
		if _, _, err := decodeCursor(token); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("token %q: expected ErrInvalidCursor, got %v", token, err)
		}
	}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return ts
}
