// Package handlers implements the dashboard's JSON API.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/goassist-bot/goassist/assistbot"
	"github.com/goassist-bot/goassist/assistbot/botmgr"
	"github.com/goassist-bot/goassist/assistbot/database"
	dbmodels "github.com/goassist-bot/goassist/assistbot/database/models"
	"github.com/goassist-bot/goassist/backend/models"
	"github.com/goassist-bot/goassist/backend/services"
)

// WebApp bundles everything the handlers need.
type WebApp struct {
	Config         *assistbot.Config
	Store          database.Storage
	Manager        *botmgr.Manager
	OAuthService   *services.OAuthService
	SessionService *services.SessionService
	Version        string
	StartedAt      time.Time
}

// HealthCheck reports service liveness.
func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(models.HealthResponse{
			Status:  "ok",
			Version: webApp.Version,
			Uptime:  time.Since(webApp.StartedAt).Round(time.Second).String(),
		})
	}
}

// resolveOwnedConfig loads a configuration and checks ownership. A config
// owned by someone else looks exactly like a missing one.
func (w *WebApp) resolveOwnedConfig(ctx context.Context, userID, configID string) (*dbmodels.BotConfig, error) {
	config, err := w.Store.GetBotConfig(ctx, configID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, services.ErrConfigNotFound()
		}
		return nil, services.WrapError(err, "failed to load bot configuration")
	}
	if config.UserID != userID {
		return nil, services.ErrConfigNotFound()
	}
	return config, nil
}
