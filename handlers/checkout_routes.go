package handlers

import (
	"courtside/middleware"
	"courtside/services"

	"github.com/gofiber/fiber/v2"
)

const signatureHeader = "Stripe-Signature"

func SetupCheckoutRoutes(r fiber.Router, checkout *services.CheckoutService) {
	r.Get("/checkout/packs", func(c *fiber.Ctx) error {
		return c.JSON(checkout.Packs())
	})

	r.Post("/checkout", func(c *fiber.Ctx) error {
		var req struct {
			PackID string `json:"pack_id"`
		}
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		cs, err := checkout.CreateCheckout(c.UserContext(), middleware.UserID(c), req.PackID)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(cs)
	})
}

// SetupWebhookRoutes registers the payment provider callback. It sits outside
// gateway auth; the HMAC signature authenticates it.
func SetupWebhookRoutes(app fiber.Router, checkout *services.CheckoutService) {
	app.Post("/webhooks/payments", func(c *fiber.Ctx) error {
		if err := checkout.HandleWebhook(c.UserContext(), c.Body(), c.Get(signatureHeader)); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"received": true})
	})
}
