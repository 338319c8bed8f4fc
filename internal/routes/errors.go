package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/timelock_escrow/internal/escrow"
)

// ErrorHandler renders program errors with their stable code and name and
// every other error as {"error": message}.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var perr *escrow.Error
		if errors.As(err, &perr) {
			return c.Status(escrow.StatusCode(err)).JSON(fiber.Map{
				"code":  perr.Code,
				"name":  perr.Name,
				"error": perr.Error(),
			})
		}

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
		}

		logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

// chain returns mw followed by h in a fresh slice so routes never share a backing array.
func chain(mw []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(mw)+1)
	out = append(out, mw...)
	return append(out, h)
}
