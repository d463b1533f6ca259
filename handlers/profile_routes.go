package handlers

import (
	"courtside/middleware"
	"courtside/services"
	"courtside/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupProfileRoutes(r fiber.Router, profiles *services.ProfileService) {
	r.Get("/profile", func(c *fiber.Ctx) error {
		p, err := profiles.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	r.Put("/profile", func(c *fiber.Ctx) error {
		var in services.ProfileInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		p, err := profiles.Upsert(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	r.Post("/profile/avatar", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("avatar")
		if err != nil {
			return badRequest(c, "avatar file is required")
		}
		body, contentType, err := utils.ReadImage(fh)
		if err != nil {
			return badRequest(c, err.Error())
		}
		p, err := profiles.SetAvatar(c.UserContext(), middleware.UserID(c), body, contentType)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	r.Get("/profiles/search", func(c *fiber.Ctx) error {
		out, err := profiles.Search(c.UserContext(), services.ProfileQuery{
			Q:     c.Query("q"),
			Role:  c.Query("role"),
			Skill: c.Query("skill"),
			City:  c.Query("city"),
			Limit: queryInt(c, "limit", 20),
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	r.Get("/profiles/:userID", func(c *fiber.Ctx) error {
		p, err := profiles.Get(c.UserContext(), c.Params("userID"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})
}
