package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/suuupra/livetrack/internal/adapters/postgres"
	"github.com/suuupra/livetrack/internal/core/domain"
)

// trackRequest is the ingest endpoint's request body: one position
// sample candidate as reported by a device.
type trackRequest struct {
	EntityID       string    `json:"entity_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Altitude       *float64  `json:"altitude,omitempty"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}

// TrackLocationHandler submits one position sample to the ingestion
// pipeline. 202 on acceptance, 400 with a reject reason otherwise.
func TrackLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req trackRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}

		candidate := &domain.PositionSample{
			EntityID:       req.EntityID,
			Latitude:       req.Latitude,
			Longitude:      req.Longitude,
			Altitude:       req.Altitude,
			AccuracyMeters: req.AccuracyMeters,
			CapturedAt:     req.CapturedAt,
		}
		if candidate.CapturedAt.IsZero() {
			// Devices without a trustworthy clock may omit captured_at.
			candidate.CapturedAt = time.Now().UTC()
		}

		sample, err := deps.Ingest.Submit(c.UserContext(), candidate)
		if err != nil {
			if ve, ok := domain.AsValidation(err); ok {
				LoggerFromCtx(c.UserContext()).Debug("sample rejected",
					"entity_id", req.EntityID, "reason", string(ve.Reason))
				return errRejected(c, ve)
			}
			if domain.IsTransient(err) {
				return errUnavailable(c, "storage busy, retry the submission")
			}
			return errInternal(c, err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status": "accepted",
			"sample": sample,
		})
	}
}

// CurrentLocationHandler returns the entity's live state from the
// in-memory cache. 404 when the entity has never reported.
func CurrentLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entityID := c.Params("entity_id")

		state, err := deps.Queries.CurrentLocation(c.UserContext(), entityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "no known location for entity "+entityID)
			}
			if ve, ok := domain.AsValidation(err); ok {
				return errRejected(c, ve)
			}
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "no-store") // live data, never cache
		return c.JSON(state)
	}
}

// LocationHistoryHandler returns one page of the entity's history.
// Query parameters: from, to (RFC 3339), cursor, limit.
func LocationHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entityID := c.Params("entity_id")
		cursor := c.Query("cursor")
		limit := c.QueryInt("limit", 0)

		var from, to time.Time
		var err error
		if raw := c.Query("from"); raw != "" {
			if from, err = time.Parse(time.RFC3339, raw); err != nil {
				return errBadRequest(c, "from must be RFC 3339: "+err.Error())
			}
		}
		if raw := c.Query("to"); raw != "" {
			if to, err = time.Parse(time.RFC3339, raw); err != nil {
				return errBadRequest(c, "to must be RFC 3339: "+err.Error())
			}
		}
		if !to.IsZero() && !from.IsZero() && to.Before(from) {
			return errBadRequest(c, "to must not precede from")
		}

		page, err := deps.Queries.History(c.UserContext(), entityID, from, to, cursor, limit)
		if err != nil {
			if errors.Is(err, postgres.ErrInvalidCursor) {
				return errBadRequest(c, "invalid cursor")
			}
			if ve, ok := domain.AsValidation(err); ok {
				return errRejected(c, ve)
			}
			if domain.IsTransient(err) {
				return errUnavailable(c, "storage busy, retry the query")
			}
			return errInternal(c, err.Error())
		}

		SetCursorLinkHeader(c, page.NextCursor)
		return c.JSON(CursorPage{
			Data:       page.Samples,
			NextCursor: page.NextCursor,
		})
	}
}

// geofenceRequest is the geofence create body.
type geofenceRequest struct {
	Name        string       `json:"name"`
	EntityScope string       `json:"entity_scope"`
	Shape       domain.Shape `json:"shape"`
}

// CreateGeofenceHandler registers a geofence. 201 with the stored
// definition, 400 with InvalidShape on degenerate geometry.
func CreateGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req geofenceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}

		g, err := deps.Geofences.Register(c.UserContext(), req.Shape, req.EntityScope, req.Name)
		if err != nil {
			if ve, ok := domain.AsValidation(err); ok {
				return errRejected(c, ve)
			}
			if domain.IsTransient(err) {
				return errUnavailable(c, "storage busy, retry the registration")
			}
			return errInternal(c, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(g)
	}
}

// ListGeofencesHandler lists registered geofences, optionally filtered
// by entity scope.
func ListGeofencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope := c.Query("entity_scope")
		fences := deps.Geofences.List(c.UserContext(), scope)
		return c.JSON(fiber.Map{
			"data":  fences,
			"count": len(fences),
		})
	}
}

// GetGeofenceHandler returns one geofence by ID.
func GetGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		g, err := deps.Geofences.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "geofence "+id+" not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(g)
	}
}

// DeleteGeofenceHandler removes a geofence from the index and storage.
func DeleteGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Geofences.Remove(c.UserContext(), id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "geofence "+id+" not found")
			}
			return errInternal(c, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// StatsHandler reports the engine's working set sizes.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "public, max-age=10")
		return c.JSON(deps.Queries.Stats())
	}
}

// RootHandler describes the service.
func RootHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "livetrack",
			"version": "1.0.0",
			"status":  "running",
			"features": []string{
				"Real-time GPS ingestion",
				"Live location queries",
				"Location history with cursor pagination",
				"Geofencing with ENTER/EXIT events",
				"WebSocket real-time updates",
			},
		})
	}
}
