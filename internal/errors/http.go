package errors

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// genericBadRequest is deliberately shared between validation failures and
// duplicate-account failures so that the register endpoint cannot be used to
// probe which emails exist.
const genericBadRequest = "invalid request"

// StatusCode maps a service error to its HTTP status. Unknown errors map to 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicateAccount):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenReused):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrAccountLocked):
		return fiber.StatusLocked
	case errors.Is(err, ErrRateLimited):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// Message returns the client-facing message for a service error. Internal
// detail never reaches the response body for uncategorized failures.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicateAccount):
		return genericBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		// may carry a remaining-attempts hint appended by the session service
		return err.Error()
	case errors.Is(err, ErrAccountLocked):
		return "account temporarily locked, try again later"
	case errors.Is(err, ErrInvalidToken):
		return "invalid or expired token"
	case errors.Is(err, ErrTokenReused):
		return "token reused or revoked"
	case errors.Is(err, ErrRateLimited):
		return "too many requests, please try again later"
	default:
		return "internal server error"
	}
}

// NewFiberErrorHandler builds the central fiber error handler. Every error
// escaping a handler funnels through here and becomes a JSON response; full
// detail for unexpected failures goes to the log only.
func NewFiberErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		status := StatusCode(err)
		if status == fiber.StatusInternalServerError {
			log.Error("unhandled request error",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(fiber.Map{"message": Message(err)})
	}
}
