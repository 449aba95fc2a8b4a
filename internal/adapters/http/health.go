package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/suuupra/livetrack/internal/adapters/valkey"
)

var (
	errNotConfigured = errors.New("not configured")
	errDisconnected  = errors.New("disconnected")
)

// HealthHandler is the liveness probe: the process is up.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "livetrack",
			"uptime":  time.Since(startedAt).String(),
		})
	}
}

type readinessProbe struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

// ReadyHandler is the readiness probe. Only the database gates
// readiness; NATS and the cache are optional accelerators whose state
// is reported but never takes the API out of rotation.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	probes := []readinessProbe{
		{
			name:     "database",
			required: true,
			check: func(ctx context.Context) error {
				if deps.DB == nil {
					return errNotConfigured
				}
				return deps.DB.Pool.Ping(ctx)
			},
		},
		{
			name: "nats",
			check: func(ctx context.Context) error {
				if deps.Publisher == nil {
					return errNotConfigured
				}
				if !deps.Publisher.Connected() {
					return errDisconnected
				}
				return nil
			},
		},
		{
			name: "cache",
			check: func(ctx context.Context) error {
				if deps.Cache == nil {
					return errNotConfigured
				}
				_, err := deps.Cache.Get(ctx, "readiness:probe")
				if valkey.IsMiss(err) {
					// The probe key never exists; a miss proves the
					// round trip worked.
					return nil
				}
				return err
			},
		},
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			err := p.check(ctx)
			switch {
			case err == nil:
				checks[p.name] = "ok"
			case err == errNotConfigured:
				checks[p.name] = "not configured"
				ready = ready && !p.required
			default:
				checks[p.name] = "error: " + err.Error()
				ready = ready && !p.required
			}
		}

		status, code := "ready", fiber.StatusOK
		if !ready {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
