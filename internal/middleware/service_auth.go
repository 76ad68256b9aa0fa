package middleware

import (
	"log/slog"
	"strings"

	"carquote_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
)

// ServiceAuthMiddleware checks the bearer service token on callback routes.
// Without a secret every request is refused.
func ServiceAuthMiddleware(secret, audience string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.TrimSpace(secret) == "" {
			slog.Error("service auth secret not configured", "path", c.Path())
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Callback authentication is not configured",
			})
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := jwt.ValidateServiceToken(secret, tokenString, audience)
		if err != nil {
			slog.Warn("rejected service token", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("service", claims)
		return c.Next()
	}
}
