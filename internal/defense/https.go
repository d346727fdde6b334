package defense

import (
	"github.com/gofiber/fiber/v2"
)

// HTTPSRedirect sends proxied plain-HTTP requests to their HTTPS equivalent.
// Only enabled in production, where the service sits behind a TLS-terminating
// proxy that sets X-Forwarded-Proto.
func HTTPSRedirect(enabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if enabled && c.Get("X-Forwarded-Proto") == "http" {
			return c.Redirect("https://"+c.Hostname()+c.OriginalURL(), fiber.StatusMovedPermanently)
		}
		return c.Next()
	}
}
