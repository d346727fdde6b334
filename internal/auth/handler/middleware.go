package handler

import (
	"strings"

	"github.com/fctanu/ClassConnect/internal/auth/service"
	autherror "github.com/fctanu/ClassConnect/internal/errors"
	"github.com/gofiber/fiber/v2"
)

// AccountIDKey is the request-local under which RequireAuth stores the
// authenticated account id for downstream handlers.
const AccountIDKey = "accountID"

// RequireAuth verifies the bearer access token and exposes the account id to
// the rest of the request pipeline.
func RequireAuth(tokens service.TokenGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return autherror.ErrInvalidToken
		}

		accountID, err := tokens.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return err
		}

		c.Locals(AccountIDKey, accountID)

		return c.Next()
	}
}
