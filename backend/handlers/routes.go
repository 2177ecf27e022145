package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/goassist-bot/goassist/backend/middleware"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, webApp *WebApp) {
	app.Get("/health", HealthCheck(webApp))

	api := app.Group("/api")

	// Authentication routes
	auth := api.Group("/auth", middleware.AuthRateLimit())
	auth.Get("/discord", DiscordOAuth(webApp))
	auth.Get("/discord/callback", OAuthCallback(webApp))
	auth.Post("/manual", ManualAuth(webApp))
	auth.Post("/logout", Logout(webApp))

	// Everything below requires a session.
	protected := api.Group("", middleware.AuthRequired(webApp.SessionService))

	protected.Get("/user/me", CurrentUser(webApp))

	configs := protected.Group("/bot-configs")
	configs.Get("/", ListBotConfigs(webApp))
	configs.Post("/", CreateBotConfig(webApp))
	configs.Get("/:id", GetBotConfig(webApp))
	configs.Patch("/:id", UpdateBotConfig(webApp))
	configs.Delete("/:id", DeleteBotConfig(webApp))

	configs.Post("/:id/start", StartBot(webApp))
	configs.Post("/:id/stop", StopBot(webApp))
	configs.Get("/:id/status", BotStatus(webApp))

	configs.Get("/:id/logs", BotLogs(webApp))
	configs.Post("/:id/logs", CreateBotLog(webApp))
	configs.Get("/:id/reviews", BotReviews(webApp))
	configs.Post("/:id/reviews", CreateBotReview(webApp))
	configs.Get("/:id/usage", BotUsage(webApp))
	configs.Get("/:id/stats", BotStats(webApp))

	protected.Get("/dashboard/stats", DashboardStats(webApp))
	protected.Get("/recent-activity", RecentActivity(webApp))
	protected.Get("/bot/invite", BotInvite(webApp))

	// Unmatched routes fall through to a JSON 404.
	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("type", "http"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
		)
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "NOT_FOUND",
				"message": "The requested endpoint does not exist",
			},
		})
	})
}
