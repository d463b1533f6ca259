package handlers

import (
	"context"

	"courtside/services"

	"github.com/gofiber/fiber/v2"
)

// SetupJobRoutes exposes the scheduled sweeps for external triggers (cron
// services, manual runs). The router must already enforce the service token.
func SetupJobRoutes(r fiber.Router, scheduler *services.SchedulerService) {
	jobs := map[string]func(context.Context) error{
		"hp-regen":       scheduler.RunHPRegen,
		"hp-decay":       scheduler.RunHPDecay,
		"session-expiry": scheduler.RunSessionExpiry,
	}
	for name, run := range jobs {
		r.Post("/jobs/"+name, func(c *fiber.Ctx) error {
			if err := run(c.UserContext()); err != nil {
				return respondError(c, err)
			}
			return c.JSON(fiber.Map{"job": name, "status": "ok"})
		})
	}
}
