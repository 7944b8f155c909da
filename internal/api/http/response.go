package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

// success renders the standard response envelope for a successful call.
func success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"message": nil,
		"error":   nil,
	})
}

// fail renders the standard response envelope for a failed call.
func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"data":    nil,
		"message": nil,
		"error":   message,
	})
}
