package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// CursorPage wraps list results with cursor pagination metadata. An
// empty next_cursor means the final page.
type CursorPage struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// SetCursorLinkHeader adds an RFC 8288 Link header pointing at the next
// page when one exists.
func SetCursorLinkHeader(c *fiber.Ctx, nextCursor string) {
	if nextCursor == "" {
		return
	}
	c.Set("Link", fmt.Sprintf(`<%s?cursor=%s>; rel="next"`, c.Path(), nextCursor))
}
