package handlers

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/goassist-bot/goassist/backend/middleware"
	"github.com/goassist-bot/goassist/backend/models"
	"github.com/goassist-bot/goassist/backend/utils"
)

// StartBot brings an owned configuration online. Starting an already
// running bot succeeds without side effects.
func StartBot(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		if err := webApp.Manager.Start(c.Context(), config.ID); err != nil {
			slog.Error("Failed to start bot",
				slog.String("type", "sys"),
				slog.String("bot_config_id", config.ID),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to start bot")
		}

		return utils.SendSuccess(c, statusOf(webApp, config.ID), "Bot started")
	}
}

// StopBot takes an owned configuration offline. Stopping a stopped bot
// succeeds without side effects.
func StopBot(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		if err := webApp.Manager.Stop(c.Context(), config.ID); err != nil {
			slog.Error("Failed to stop bot",
				slog.String("type", "sys"),
				slog.String("bot_config_id", config.ID),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to stop bot")
		}

		return utils.SendSuccess(c, statusOf(webApp, config.ID), "Bot stopped")
	}
}

// BotStatus reports whether the configuration currently holds a live
// connection.
func BotStatus(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		status := statusOf(webApp, config.ID)
		status.IsActive = config.IsActive
		return utils.SendSuccess(c, status, "")
	}
}

// BotInvite returns the invite URL for adding the bot to a server.
func BotInvite(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := middleware.RequireSession(c); err != nil {
			return utils.SendServiceError(c, err)
		}

		clientID := webApp.Config.Web.OAuth.ClientID
		if clientID == "" {
			return utils.SendInternalServerError(c, "Bot not configured")
		}

		// Send Messages, Embed Links, Attach Files, Read Message History,
		// Use Application Commands.
		const permissions = 2147600384

		inviteURL := fmt.Sprintf(
			"https://discord.com/api/oauth2/authorize?client_id=%s&permissions=%d&scope=bot%%20applications.commands",
			clientID, permissions)

		return utils.SendSuccess(c, models.InviteResponse{InviteURL: inviteURL}, "")
	}
}

func statusOf(webApp *WebApp, configID string) *models.BotStatusResponse {
	running := webApp.Manager.Running(configID)
	return &models.BotStatusResponse{
		BotConfigID: configID,
		Running:     running,
		IsActive:    running,
	}
}
