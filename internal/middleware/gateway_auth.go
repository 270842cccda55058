package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/samples/pkg/response"
)

// GatewayAuthMiddleware reads operator identity from X-User-* headers
// set by a ForwardAuth proxy and populates Fiber context locals.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}

		c.Locals("userId", userID)
		c.Locals("email", c.Get("X-User-Email"))

		return c.Next()
	}
}

// GetUserID returns the gateway identity, or "" when gateway mode is off
func GetUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("userId").(string); ok {
		return id
	}
	return ""
}
