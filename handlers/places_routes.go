package handlers

import (
	"courtside/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPlacesRoutes(r fiber.Router, places *services.PlacesService) {
	r.Get("/places/search", func(c *fiber.Ctx) error {
		out, err := places.Search(c.UserContext(), c.Query("q"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"results": out})
	})
}
