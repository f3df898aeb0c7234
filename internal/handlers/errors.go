package handlers

import (
	"errors"

	"storefront/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidProduct), errors.Is(err, models.ErrInvalidLocator):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrProductNotFound), errors.Is(err, models.ErrImageNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrUploadTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, models.ErrUploadFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, models.ErrRemoteUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, message string, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
