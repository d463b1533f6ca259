package handlers

import (
	"courtside/middleware"
	"courtside/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSessionRoutes(r fiber.Router, sessions *services.SessionService, feedback *services.FeedbackService) {
	r.Post("/sessions", func(c *fiber.Ctx) error {
		var in services.CreateSessionInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		sess, err := sessions.Create(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	})

	r.Get("/sessions", func(c *fiber.Ctx) error {
		host := c.Query("host")
		if c.QueryBool("mine") {
			host = middleware.UserID(c)
		}
		out, err := sessions.List(c.UserContext(), host)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	r.Post("/sessions/:id/join", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		sess, err := sessions.Join(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(sess)
	})

	r.Post("/sessions/:id/leave", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		refunded, err := sessions.Leave(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"left": true, "refunded": refunded})
	})

	r.Post("/sessions/:id/complete", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		sess, err := sessions.Complete(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(sess)
	})

	r.Post("/feedback", func(c *fiber.Ctx) error {
		var in services.FeedbackInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		res, err := feedback.Submit(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	r.Get("/coaches/:userID/progress", func(c *fiber.Ctx) error {
		cp, err := feedback.CoachProgress(c.UserContext(), c.Params("userID"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(cp)
	})
}

func SetupAppointmentRoutes(r fiber.Router, appointments *services.AppointmentService) {
	r.Post("/appointments", func(c *fiber.Ctx) error {
		var in services.AppointmentInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		req, err := appointments.Request(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	})

	r.Get("/appointments", func(c *fiber.Ctx) error {
		out, err := appointments.List(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	r.Post("/appointments/:id/respond", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		var body struct {
			Accept *bool `json:"accept"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		if body.Accept == nil {
			return badRequest(c, "accept is required")
		}
		req, err := appointments.Respond(c.UserContext(), id, middleware.UserID(c), *body.Accept)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(req)
	})

	r.Post("/appointments/:id/cancel", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		req, err := appointments.Cancel(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(req)
	})
}
