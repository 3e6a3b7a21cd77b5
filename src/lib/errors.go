package lib

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/lostnfound-backend/src/apperr"
)

// ErrorHandler renders every error returned by a handler as {message}.
// Unexpected errors are logged and reported as a generic 500.
func ErrorHandler(logger *slog.Logger, maxUploadMB int) fiber.ErrorHandler {
	tooLarge := fmt.Sprintf("File size too large. Maximum size is %dMB.", maxUploadMB)

	return func(c *fiber.Ctx, err error) error {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind != apperr.KindInternal {
			return c.Status(appErr.Status()).JSON(MessageResponse(appErr.Message))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			switch {
			case fiberErr.Code == fiber.StatusRequestEntityTooLarge:
				return c.Status(fiber.StatusBadRequest).JSON(MessageResponse(tooLarge))
			case fiberErr.Code == fiber.StatusNotFound:
				return c.Status(fiber.StatusNotFound).JSON(MessageResponse("Not found."))
			case fiberErr.Code < fiber.StatusInternalServerError:
				return c.Status(fiberErr.Code).JSON(MessageResponse(fiberErr.Message))
			}
		}

		logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", RequestID(c),
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(MessageResponse("Internal server error."))
	}
}

// RequestID returns the id set by the requestid middleware, if any.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
