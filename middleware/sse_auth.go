package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SSEAuthMiddleware authenticates EventSource requests, which cannot send
// headers, from the `token` query parameter.
func SSEAuthMiddleware(jwtSecret string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing token in query"})
		}
		claims, err := ParseToken(jwtSecret, token)
		if err != nil {
			logger.Info("stream auth failed", zap.String("ip", c.IP()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalRoles, claims.Roles)
		return c.Next()
	}
}
