package handlers

import (
	"clipflow/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorHandler converts AppError values into the API's JSON error envelope.
// Anything else is masked as a 500 so internal details never leak to clients.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	op := "unknown"

	if e, ok := err.(*errors.AppError); ok {
		code = e.Code
		message = e.Message
		if e.Op != "" {
			op = e.Op
		}
	}

	event := log.Error()
	if code < fiber.StatusInternalServerError {
		// Client errors are expected traffic, keep them out of the error level.
		event = log.Warn()
	}
	event.
		Str("request_id", c.Get("X-Request-ID")).
		Str("op", op).
		Str("path", c.Path()).
		Str("method", c.Method()).
		Int("status", code).
		Err(err).
		Msg("Request failed")

	return c.Status(code).JSON(fiber.Map{
		"success":    false,
		"error":      message,
		"request_id": c.Get("X-Request-ID"),
	})
}
