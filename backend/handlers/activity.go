package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilm/fuzzy"

	"github.com/goassist-bot/goassist/assistbot/database"
	dbmodels "github.com/goassist-bot/goassist/assistbot/database/models"
	"github.com/goassist-bot/goassist/backend/middleware"
	"github.com/goassist-bot/goassist/backend/models"
	"github.com/goassist-bot/goassist/backend/utils"
)

const recentActivityLimit = 10

// BotLogs returns recent command logs for an owned configuration, newest
// first. `limit` caps the result; `search` fuzzy-matches command, user,
// and channel names.
func BotLogs(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		limit := c.QueryInt("limit", database.DefaultLogLimit)
		logs, err := webApp.Store.GetCommandLogsByBotConfigID(c.Context(), config.ID, limit)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to load command logs")
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			logs = filterLogs(logs, search)
		}
		if logs == nil {
			logs = []*dbmodels.CommandLog{}
		}

		return utils.SendSuccess(c, logs, "")
	}
}

// CreateBotLog records a command log row directly, for integrations that
// report activity from outside the gateway.
func CreateBotLog(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		var req models.CreateLogRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}
		if strings.TrimSpace(req.CommandName) == "" {
			return utils.SendValidationError(c, "Missing required fields", map[string]string{
				"commandName": "required",
			})
		}

		log := &dbmodels.CommandLog{
			BotConfigID:  config.ID,
			CommandName:  req.CommandName,
			Username:     req.Username,
			ChannelName:  req.ChannelName,
			Success:      req.Success,
			ErrorMessage: req.ErrorMessage,
			ResponseTime: req.ResponseTime,
		}
		if err := webApp.Store.CreateCommandLog(c.Context(), log); err != nil {
			return utils.SendInternalServerError(c, "Failed to record command log")
		}

		return utils.SendCreated(c, log, "Command log recorded")
	}
}

// BotReviews returns recent reviews for an owned configuration.
func BotReviews(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		limit := c.QueryInt("limit", database.DefaultReviewLimit)
		reviews, err := webApp.Store.GetUserReviewsByBotConfigID(c.Context(), config.ID, limit)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to load reviews")
		}
		if reviews == nil {
			reviews = []*dbmodels.UserReview{}
		}

		return utils.SendSuccess(c, reviews, "")
	}
}

// CreateBotReview records a review against an owned configuration.
func CreateBotReview(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		var req models.CreateReviewRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}
		if req.Rating < dbmodels.MinRating || req.Rating > dbmodels.MaxRating {
			return utils.SendValidationError(c,
				fmt.Sprintf("Rating must be between %d and %d", dbmodels.MinRating, dbmodels.MaxRating),
				map[string]string{"rating": "out of range"})
		}

		review := &dbmodels.UserReview{
			BotConfigID: config.ID,
			Username:    req.Username,
			Rating:      req.Rating,
			Feedback:    req.Feedback,
		}
		if review.Username == "" {
			review.Username = session.Username
		}
		if err := webApp.Store.CreateUserReview(c.Context(), review); err != nil {
			return utils.SendInternalServerError(c, "Failed to record review")
		}

		return utils.SendCreated(c, review, "Review recorded")
	}
}

// BotUsage returns recent model-call accounting rows for an owned
// configuration.
func BotUsage(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		limit := c.QueryInt("limit", database.DefaultUsageLimit)
		usage, err := webApp.Store.GetApiUsageByBotConfigID(c.Context(), config.ID, limit)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to load usage")
		}
		if usage == nil {
			usage = []*dbmodels.ApiUsage{}
		}

		return utils.SendSuccess(c, usage, "")
	}
}

// BotStats aggregates one configuration's command and review history.
func BotStats(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		config, err := webApp.resolveOwnedConfig(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		stats, err := webApp.Store.GetBotConfigStats(c.Context(), config.ID)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to compute stats")
		}

		return utils.SendSuccess(c, stats, "")
	}
}

// DashboardStats aggregates across every configuration the user owns.
func DashboardStats(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		stats, err := webApp.Store.GetDashboardStats(c.Context(), session.UserID)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to compute stats")
		}

		return utils.SendSuccess(c, stats, "")
	}
}

// RecentActivity returns the last few command logs across all of the
// user's configurations, newest first.
func RecentActivity(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		configs, err := webApp.Store.GetBotConfigsByUserID(c.Context(), session.UserID)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to load bot configurations")
		}

		var recent []*dbmodels.CommandLog
		for _, config := range configs {
			logs, err := webApp.Store.GetCommandLogsByBotConfigID(c.Context(), config.ID, recentActivityLimit)
			if err != nil {
				return utils.SendInternalServerError(c, "Failed to load command logs")
			}
			recent = append(recent, logs...)
		}

		sort.Slice(recent, func(i, j int) bool {
			return recent[i].ExecutedAt.After(recent[j].ExecutedAt)
		})
		if len(recent) > recentActivityLimit {
			recent = recent[:recentActivityLimit]
		}
		if recent == nil {
			recent = []*dbmodels.CommandLog{}
		}

		return utils.SendSuccess(c, recent, "")
	}
}

// filterLogs keeps logs whose command, user, or channel name fuzzy-matches
// the pattern, preserving the incoming (newest first) order.
func filterLogs(logs []*dbmodels.CommandLog, pattern string) []*dbmodels.CommandLog {
	targets := make([]string, len(logs))
	for i, log := range logs {
		targets[i] = log.CommandName + " " + log.Username + " " + log.ChannelName
	}

	matches := fuzzy.Find(pattern, targets)
	keep := make(map[int]bool, len(matches))
	for _, match := range matches {
		keep[match.Index] = true
	}

	filtered := make([]*dbmodels.CommandLog, 0, len(matches))
	for i, log := range logs {
		if keep[i] {
			filtered = append(filtered, log)
		}
	}
	return filtered
}
