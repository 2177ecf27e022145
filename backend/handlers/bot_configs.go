package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	dbmodels "github.com/goassist-bot/goassist/assistbot/database/models"
	"github.com/goassist-bot/goassist/backend/middleware"
	"github.com/goassist-bot/goassist/backend/models"
	"github.com/goassist-bot/goassist/backend/utils"
)

// Fields a PATCH may touch. Anything else in the body is rejected, which
// keeps isActive and ownership out of caller reach.
var updatableConfigFields = map[string]bool{
	"botName":         true,
	"aiModel":         true,
	"systemPrompt":    true,
	"policyContent":   true,
	"allowedChannels": true,
	"allowedRoles":    true,
	"adminOnly":       true,
}

// ListBotConfigs returns every configuration the user owns.
func ListBotConfigs(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		configs, err := webApp.Store.GetBotConfigsByUserID(c.Context(), session.UserID)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to load bot configurations")
		}
		if configs == nil {
			configs = []*dbmodels.BotConfig{}
		}

		return utils.SendSuccess(c, configs, "")
	}
}

// CreateBotConfig creates a configuration for a guild the user manages.
func CreateBotConfig(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		var req models.CreateBotConfigRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}

		details := map[string]string{}
		if strings.TrimSpace(req.GuildID) == "" {
			details["guildId"] = "required"
		}
		if strings.TrimSpace(req.GuildName) == "" {
			details["guildName"] = "required"
		}
		if len(details) > 0 {
			return utils.SendValidationError(c, "Missing required fields", details)
		}

		config := &dbmodels.BotConfig{
			UserID:          session.UserID,
			GuildID:         req.GuildID,
			GuildName:       req.GuildName,
			BotName:         req.BotName,
			AIModel:         req.AIModel,
			SystemPrompt:    req.SystemPrompt,
			PolicyContent:   req.PolicyContent,
			AllowedChannels: dbmodels.StringList(req.AllowedChannels),
			AllowedRoles:    dbmodels.StringList(req.AllowedRoles),
			AdminOnly:       req.AdminOnly,
		}
		if config.BotName == "" {
			config.BotName = dbmodels.DefaultBotName
		}
		if config.AIModel == "" {
			config.AIModel = dbmodels.DefaultAIModel
		}
		if config.PolicyContent != "" {
			now := time.Now()
			config.PolicyUpdatedAt = &now
		}

		if err := webApp.Store.CreateBotConfig(c.Context(), config); err != nil {
			slog.Error("Failed to create bot config",
				slog.String("type", "db"),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to create bot configuration")
		}

		return utils.SendCreated(c, config, "Bot configuration created")
	}
}

// GetBotConfig returns one owned configuration.
func GetBotConfig(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		return utils.SendSuccess(c, config, "")
	}
}

// UpdateBotConfig applies a partial update. The body must only contain
// allow-listed fields; unknown keys fail the whole request.
func UpdateBotConfig(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		var patch map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &patch); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}
		if len(patch) == 0 {
			return utils.SendValidationError(c, "No fields to update", nil)
		}

		for field := range patch {
			if !updatableConfigFields[field] {
				return utils.SendValidationError(c, "Unknown or immutable field", map[string]string{
					field: "not updatable",
				})
			}
		}

		if err := applyConfigPatch(config, patch); err != nil {
			return utils.SendValidationError(c, err.Error(), nil)
		}

		if err := webApp.Store.UpdateBotConfig(c.Context(), config); err != nil {
			slog.Error("Failed to update bot config",
				slog.String("type", "db"),
				slog.String("bot_config_id", config.ID),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to update bot configuration")
		}

		return utils.SendSuccess(c, config, "Bot configuration updated")
	}
}

// DeleteBotConfig stops the bot if it is running and removes the
// configuration.
func DeleteBotConfig(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		if webApp.Manager.Running(config.ID) {
			if err := webApp.Manager.Stop(c.Context(), config.ID); err != nil {
				slog.Error("Failed to stop bot before delete",
					slog.String("type", "sys"),
					slog.String("bot_config_id", config.ID),
					slog.Any("error", err))
			}
		}

		if err := webApp.Store.DeleteBotConfig(c.Context(), config.ID); err != nil {
			return utils.SendInternalServerError(c, "Failed to delete bot configuration")
		}

		return utils.SendSuccess(c, nil, "Bot configuration deleted")
	}
}

func applyConfigPatch(config *dbmodels.BotConfig, patch map[string]json.RawMessage) error {
	decodeString := func(field string, dst *string) error {
		raw, ok := patch[field]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("field %s must be a string", field)
		}
		return nil
	}

	if err := decodeString("botName", &config.BotName); err != nil {
		return err
	}
	if err := decodeString("aiModel", &config.AIModel); err != nil {
		return err
	}
	if err := decodeString("systemPrompt", &config.SystemPrompt); err != nil {
		return err
	}

	if raw, ok := patch["policyContent"]; ok {
		var policy string
		if err := json.Unmarshal(raw, &policy); err != nil {
			return fmt.Errorf("field policyContent must be a string")
		}
		config.PolicyContent = policy
		now := time.Now()
		config.PolicyUpdatedAt = &now
	}

	if raw, ok := patch["allowedChannels"]; ok {
		var channels []string
		if err := json.Unmarshal(raw, &channels); err != nil {
			return fmt.Errorf("field allowedChannels must be a string array")
		}
		config.AllowedChannels = dbmodels.StringList(channels)
	}
	if raw, ok := patch["allowedRoles"]; ok {
		var roles []string
		if err := json.Unmarshal(raw, &roles); err != nil {
			return fmt.Errorf("field allowedRoles must be a string array")
		}
		config.AllowedRoles = dbmodels.StringList(roles)
	}
	if raw, ok := patch["adminOnly"]; ok {
		if err := json.Unmarshal(raw, &config.AdminOnly); err != nil {
			return fmt.Errorf("field adminOnly must be a boolean")
		}
	}

	return nil
}
