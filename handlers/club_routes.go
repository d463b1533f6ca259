package handlers

import (
	"courtside/middleware"
	"courtside/services"
	"courtside/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupClubRoutes(r fiber.Router, clubs *services.ClubService) {
	r.Post("/clubs", func(c *fiber.Ctx) error {
		var in services.CreateClubInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		club, err := clubs.Create(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(club)
	})

	r.Get("/clubs", func(c *fiber.Ctx) error {
		out, err := clubs.List(c.UserContext(), c.Query("city"), queryInt(c, "limit", 50))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	r.Get("/clubs/:slug", func(c *fiber.Ctx) error {
		club, err := clubs.Get(c.UserContext(), c.Params("slug"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(club)
	})

	r.Post("/clubs/:slug/join", func(c *fiber.Ctx) error {
		m, err := clubs.Join(c.UserContext(), c.Params("slug"), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	r.Post("/clubs/:slug/leave", func(c *fiber.Ctx) error {
		if err := clubs.Leave(c.UserContext(), c.Params("slug"), middleware.UserID(c)); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"left": true})
	})

	r.Get("/clubs/:slug/members", func(c *fiber.Ctx) error {
		out, err := clubs.Members(c.UserContext(), c.Params("slug"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	r.Post("/clubs/:slug/logo", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("logo")
		if err != nil {
			return badRequest(c, "logo file is required")
		}
		body, contentType, err := utils.ReadImage(fh)
		if err != nil {
			return badRequest(c, err.Error())
		}
		club, err := clubs.SetLogo(c.UserContext(), c.Params("slug"), middleware.UserID(c), body, contentType)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(club)
	})
}
