package handlers

import (
	"errors"

	"finboard/internal/service"
	"finboard/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

func getUserID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals(middleware.LocalUserID).(string)
	if !ok || userID == "" {
		return "", fiber.ErrUnauthorized
	}
	return userID, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

// respondError renders a service error. storeMessage is the generic text shown
// when the store could not serve the operation.
func respondError(c *fiber.Ctx, err error, storeMessage string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transaction not found.",
		})
	case errors.Is(err, service.ErrStoreUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": storeMessage,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": storeMessage,
		})
	}
}
