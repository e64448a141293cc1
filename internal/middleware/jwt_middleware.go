package middleware

import (
	"log"
	"strings"

	"katalog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the Locals key under which AuthRequired stores the
// authenticated caller's ID.
const UserIDKey = "user_id"

// AuthRequired is a Fiber middleware that validates the bearer token and
// attaches the caller's identity to the request context. Each failure mode
// gets its own message so clients can tell a missing header from a bad
// token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "UNAUTHORIZED_ACCESS: Token required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "UNAUTHORIZED_ACCESS: Invalid token format",
			})
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "UNAUTHORIZED_ACCESS: Invalid or expired token",
			})
		}

		userID, ok := claims[UserIDKey].(string)
		if !ok || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "UNAUTHORIZED_ACCESS: Invalid token data",
			})
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}
