package handler

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the auth endpoints behind the given middleware
// (typically the auth route-class rate limiter).
func RegisterRoutes(app *fiber.App, h *AuthHandler, middleware ...fiber.Handler) {
	auth := app.Group("/auth", middleware...)

	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/logout", h.Logout)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
