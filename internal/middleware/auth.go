package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/filedock/backend/internal/identity"
	"github.com/gofiber/fiber/v2"
)

// SessionRequired validates the bearer token through the cached session
// validator and stores the resulting identity in the request locals.
// Any validation ambiguity denies the request.
func SessionRequired(validator *identity.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Missing authorization header",
			})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid authorization header format",
			})
		}

		id, err := validator.ValidateSession(c.UserContext(), parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or expired session",
			})
		}

		c.Locals("identity", id)
		c.Locals("userID", id.UserID)

		return c.Next()
	}
}

// CurrentUserID returns the authenticated user's id from the locals.
func CurrentUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("userID").(string); ok {
		return id
	}
	return ""
}

// AdminRequired guards operator-only endpoints with a static token
// carried in X-Admin-Token. An empty configured token disables the
// endpoints entirely.
func AdminRequired(adminToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminToken == "" {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Not found",
			})
		}

		provided := c.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminToken)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid admin token",
			})
		}

		return c.Next()
	}
}
