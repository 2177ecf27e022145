package database

import (
	"context"
	"errors"

	"github.com/goassist-bot/goassist/assistbot/database/models"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("record not found")

// Default list limits, matching what the dashboard shows per page.
const (
	DefaultLogLimit    = 50
	DefaultReviewLimit = 20
	DefaultUsageLimit  = 100
)

// BotConfigStats aggregates the command and review history of one
// configuration. AvgResponseTime averages only rows that carry a timing.
type BotConfigStats struct {
	TotalCommands      int     `json:"totalCommands"`
	SuccessfulCommands int     `json:"successfulCommands"`
	AvgRating          float64 `json:"avgRating"`
	AvgResponseTime    float64 `json:"avgResponseTime"`
}

// DashboardStats aggregates across every configuration a user owns.
// SuccessRate is a rounded percentage.
type DashboardStats struct {
	TotalBots     int `json:"totalBots"`
	ActiveBots    int `json:"activeBots"`
	TotalCommands int `json:"totalCommands"`
	SuccessRate   int `json:"successRate"`
}

// Storage is the single contract both backends implement. Create methods
// assign the id and timestamps on the passed model. Callers must not rely
// on any backend-specific behavior beyond this interface.
type Storage interface {
	// Users
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByDiscordID(ctx context.Context, discordID string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error

	// Bot configurations
	GetBotConfig(ctx context.Context, id string) (*models.BotConfig, error)
	GetBotConfigByGuildID(ctx context.Context, guildID, userID string) (*models.BotConfig, error)
	GetBotConfigsByUserID(ctx context.Context, userID string) ([]*models.BotConfig, error)
	CreateBotConfig(ctx context.Context, config *models.BotConfig) error
	UpdateBotConfig(ctx context.Context, config *models.BotConfig) error
	SetBotConfigActive(ctx context.Context, id string, active bool) error
	DeactivateAllBotConfigs(ctx context.Context) error
	DeleteBotConfig(ctx context.Context, id string) error

	// Command logs (append-only)
	CreateCommandLog(ctx context.Context, log *models.CommandLog) error
	GetCommandLogsByBotConfigID(ctx context.Context, botConfigID string, limit int) ([]*models.CommandLog, error)

	// User reviews (append-only)
	CreateUserReview(ctx context.Context, review *models.UserReview) error
	GetUserReviewsByBotConfigID(ctx context.Context, botConfigID string, limit int) ([]*models.UserReview, error)

	// API usage (append-only)
	CreateApiUsage(ctx context.Context, usage *models.ApiUsage) error
	GetApiUsageByBotConfigID(ctx context.Context, botConfigID string, limit int) ([]*models.ApiUsage, error)

	// Aggregates
	GetBotConfigStats(ctx context.Context, botConfigID string) (*BotConfigStats, error)
	GetDashboardStats(ctx context.Context, userID string) (*DashboardStats, error)

	Close() error
}
