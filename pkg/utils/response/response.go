// Package response writes the JSON envelopes shared by all handlers.
package response

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/pkg/errs"
)

// Error maps err onto its HTTP status and writes it. Unknown errors are
// logged and answered with a generic 500.
func Error(c *fiber.Ctx, err error) error {
	if v, ok := errs.AsValidation(err); ok {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "validation failed",
			"errors": v.Fields,
		})
	}
	if errs.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if cf, ok := errs.AsConflict(err); ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": cf.Message})
	}
	if u, ok := errs.AsUpstream(err); ok {
		log.Printf("upstream failure on %s: %v", c.OriginalURL(), u)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "external catalog unavailable"})
	}

	log.Printf("request %s %s failed: %v", c.Method(), c.OriginalURL(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// BadRequest reports malformed input that never reached validation.
func BadRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// NotFound writes a 404 with message.
func NotFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": message})
}

// Created writes data with 201.
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

// Message writes a {"message": ...} body with 200.
func Message(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{"message": message})
}
