package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserContextMiddleware resolves the caller for secured routes. Identity from a
// verified JWT wins; service-token calls carry it in X-User-ID / X-User-Roles.
func UserContextMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == "" {
			if svc, _ := c.Locals(LocalService).(bool); svc {
				c.Locals(LocalUserID, strings.TrimSpace(c.Get("X-User-ID")))
				c.Locals(LocalRoles, splitRoles(c.Get("X-User-Roles")))
			}
		}
		userID := UserID(c)
		if userID == "" {
			logger.Info("user context missing", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
		}
		return c.Next()
	}
}

// RequireRole rejects callers without role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !HasRole(c, role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": role + " role required"})
		}
		return c.Next()
	}
}

func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

func Roles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(LocalRoles).([]string)
	return roles
}

func HasRole(c *fiber.Ctx, role string) bool {
	for _, r := range Roles(c) {
		if r == role {
			return true
		}
	}
	return false
}

func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
