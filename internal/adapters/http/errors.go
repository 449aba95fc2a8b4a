package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/suuupra/livetrack/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, OutOfRange, ClockSkew, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errRejected maps a domain.ValidationError to a 400 carrying the
// machine-readable reject reason as the error code.
func errRejected(c *fiber.Ctx, ve *domain.ValidationError) error {
	return newError(c, 400, string(ve.Reason), ve.Message)
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 for retryable storage failures.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "storage_unavailable", msg)
}
