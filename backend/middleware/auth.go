package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/goassist-bot/goassist/backend/models"
	"github.com/goassist-bot/goassist/backend/services"
	"github.com/goassist-bot/goassist/backend/utils"
)

// SessionReader resolves the request to a session, implemented by the
// session service.
type SessionReader interface {
	GetSession(c *fiber.Ctx) (*models.UserSession, error)
}

// AuthRequired middleware ensures the user is authenticated
func AuthRequired(sessions SessionReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := sessions.GetSession(c)
		if err != nil {
			slog.Debug("Auth required: no valid session",
				slog.String("type", "http"),
				slog.String("error", err.Error()))
			return utils.SendUnauthorized(c, "Authentication required")
		}

		if session == nil || session.UserID == "" {
			slog.Debug("Auth required: invalid session", slog.String("type", "http"))
			return utils.SendUnauthorized(c, "Authentication required")
		}

		c.Locals("user", session)
		return c.Next()
	}
}

// OptionalAuth middleware adds user info to context if authenticated, but doesn't require it
func OptionalAuth(sessions SessionReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := sessions.GetSession(c)
		if err == nil && session != nil && session.UserID != "" {
			c.Locals("user", session)
		}
		return c.Next()
	}
}

// RequireSession pulls the authenticated session out of the context.
// Handlers behind AuthRequired can rely on it being there.
func RequireSession(c *fiber.Ctx) (*models.UserSession, error) {
	session, ok := utils.ExtractUserSession(c)
	if !ok {
		return nil, services.ErrAuthRequired("Authentication required")
	}
	return session, nil
}
