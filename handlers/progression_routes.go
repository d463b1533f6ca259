package handlers

import (
	"courtside/middleware"
	"courtside/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(r fiber.Router, progression *services.ProgressionService, hp *services.HPService) {
	r.Get("/progress", func(c *fiber.Ctx) error {
		view, err := progression.GetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(view)
	})

	r.Get("/progress/history", func(c *fiber.Ctx) error {
		history, err := progression.History(c.UserContext(), middleware.UserID(c), queryInt(c, "page", 1), queryInt(c, "size", 20))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(history)
	})

	r.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := progression.Leaderboard(c.UserContext(), queryInt(c, "limit", 20))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entries)
	})

	r.Post("/hp/regenerate", func(c *fiber.Ctx) error {
		current, err := hp.Regenerate(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"hp": current})
	})

	r.Post("/admin/xp/grant", middleware.RequireRole("admin"), func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if req.UserID == "" || req.XP < 1 {
			return badRequest(c, "user_id and a positive xp are required")
		}
		if req.Reason == "" {
			req.Reason = "admin_grant"
		}
		award, err := progression.GrantXP(c.UserContext(), req.UserID, req.XP, req.Reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(award)
	})
}
