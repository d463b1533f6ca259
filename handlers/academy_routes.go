package handlers

import (
	"courtside/middleware"
	"courtside/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAcademyRoutes(r fiber.Router, academy *services.AcademyService) {
	r.Get("/academy/questions", func(c *fiber.Ctx) error {
		qs, err := academy.Questions(c.UserContext(), c.Query("topic"), queryInt(c, "n", 5))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(qs)
	})

	r.Post("/academy/submit", func(c *fiber.Ctx) error {
		var req struct {
			Topic   string         `json:"topic"`
			Answers map[string]int `json:"answers"`
		}
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		res, err := academy.Submit(c.UserContext(), middleware.UserID(c), req.Topic, req.Answers)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})
}
