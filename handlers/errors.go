package handlers

import (
	"strconv"

	"courtside/analysis"
	"courtside/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrNotFound, fiber.StatusNotFound},
	{services.ErrInvalidInput, fiber.StatusBadRequest},
	{analysis.ErrInvalidScore, fiber.StatusBadRequest},
	{services.ErrBadSignature, fiber.StatusBadRequest},
	{services.ErrForbidden, fiber.StatusForbidden},
	{services.ErrInsufficientTokens, fiber.StatusPaymentRequired},
	{services.ErrInsufficientHP, fiber.StatusUnprocessableEntity},
	{services.ErrStakeNotAllowed, fiber.StatusUnprocessableEntity},
	{services.ErrInvalidState, fiber.StatusConflict},
	{services.ErrConflict, fiber.StatusConflict},
	{services.ErrUnavailable, fiber.StatusServiceUnavailable},
}

// respondError maps service errors onto HTTP statuses. Anything unrecognised
// is logged and reported as a generic failure.
func respondError(c *fiber.Ctx, err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return c.Status(e.status).JSON(fiber.Map{"error": err.Error()})
		}
	}
	zap.L().Error("request failed",
		zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "something went wrong, please try again"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return errors.Wrap(services.ErrInvalidInput, "invalid JSON body")
	}
	return nil
}

// idParam reads a UUID route parameter.
func idParam(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	if _, err := uuid.Parse(raw); err != nil {
		return "", errors.Wrap(services.ErrInvalidInput, name+" must be a UUID")
	}
	return raw, nil
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}
