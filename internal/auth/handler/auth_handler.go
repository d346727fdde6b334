package handler

import (
	"time"

	"github.com/fctanu/ClassConnect/config"
	"github.com/fctanu/ClassConnect/internal/auth/dto"
	"github.com/fctanu/ClassConnect/internal/auth/service"
	autherror "github.com/fctanu/ClassConnect/internal/errors"
	"github.com/gofiber/fiber/v2"
)

const refreshCookieName = "refresh"

// refreshCookiePath scopes the cookie to the refresh endpoint so it is not
// attached to every request.
const refreshCookiePath = "/auth/refresh"

type AuthHandler struct {
	sessions *service.SessionService
	tokens   service.TokenGenerator
	cfg      *config.Config
}

func NewAuthHandler(sessions *service.SessionService, tokens service.TokenGenerator, cfg *config.Config) *AuthHandler {
	return &AuthHandler{sessions: sessions, tokens: tokens, cfg: cfg}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return autherror.ErrValidation
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	account, err := h.sessions.Register(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"accountId": account.ID,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return autherror.ErrValidation
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	pair, err := h.sessions.Login(c.UserContext(), input)
	if err != nil {
		return err
	}

	c.Cookie(h.refreshCookie(pair.RefreshToken))

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"accessToken": pair.AccessToken,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(refreshCookieName)
	if token == "" {
		return autherror.ErrInvalidToken
	}

	pair, err := h.sessions.Refresh(c.UserContext(), token, c.IP())
	if err != nil {
		return err
	}

	c.Cookie(h.refreshCookie(pair.RefreshToken))

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"accessToken": pair.AccessToken,
	})
}

// Logout always reports success and always clears the cookie, whatever the
// server-side outcome.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(refreshCookieName); token != "" {
		h.sessions.Logout(c.UserContext(), token)
	}

	c.Cookie(h.clearedRefreshCookie())

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}

func (h *AuthHandler) refreshCookie(token string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(h.tokens.RefreshTokenExpiry().Seconds()),
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func (h *AuthHandler) clearedRefreshCookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
