package handlers

import (
	"time"

	"courtside/middleware"
	"courtside/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMessageRoutes(r fiber.Router, messages *services.MessageService) {
	r.Post("/messages", func(c *fiber.Ctx) error {
		var req struct {
			RecipientID string `json:"recipient_id"`
			Body        string `json:"body"`
		}
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		msg, err := messages.Send(c.UserContext(), middleware.UserID(c), req.RecipientID, req.Body)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(msg)
	})

	// Registered before /messages/:userID so "unread" is not read as a user.
	r.Get("/messages/unread", func(c *fiber.Ctx) error {
		n, err := messages.UnreadCount(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"unread": n})
	})

	r.Get("/messages/:userID", func(c *fiber.Ctx) error {
		var before time.Time
		if raw := c.Query("before"); raw != "" {
			t, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return badRequest(c, "before must be an RFC 3339 timestamp")
			}
			before = t.UTC()
		}
		out, err := messages.Conversation(c.UserContext(), middleware.UserID(c), c.Params("userID"), before, queryInt(c, "limit", 50))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	r.Post("/messages/:id/read", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		msg, err := messages.MarkRead(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(msg)
	})
}
