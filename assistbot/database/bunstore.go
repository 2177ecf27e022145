package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goassist-bot/goassist/assistbot/database/models"
)

// BunStorage is the durable Storage implementation. The same code serves
// the single-file SQLite backend and Postgres; the dialect is fixed when
// the bun.DB is opened.
type BunStorage struct {
	db *bun.DB
}

var _ Storage = (*BunStorage)(nil)

func NewBunStorage(db *bun.DB) *BunStorage {
	return &BunStorage{db: db}
}

func (s *BunStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := s.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *BunStorage) GetUserByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	user := new(models.User)
	err := s.db.NewSelect().
		Model(user).
		Where("discord_id = ?", discordID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *BunStorage) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.LastLogin = now
	_, err := s.db.NewInsert().Model(user).Exec(ctx)
	return err
}

func (s *BunStorage) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := s.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *BunStorage) GetBotConfig(ctx context.Context, id string) (*models.BotConfig, error) {
	config := new(models.BotConfig)
	err := s.db.NewSelect().
		Model(config).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return config, nil
}

func (s *BunStorage) GetBotConfigByGuildID(ctx context.Context, guildID, userID string) (*models.BotConfig, error) {
	config := new(models.BotConfig)
	err := s.db.NewSelect().
		Model(config).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return config, nil
}

func (s *BunStorage) GetBotConfigsByUserID(ctx context.Context, userID string) ([]*models.BotConfig, error) {
	var configs []*models.BotConfig
	err := s.db.NewSelect().
		Model(&configs).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	return configs, err
}

func (s *BunStorage) CreateBotConfig(ctx context.Context, config *models.BotConfig) error {
	now := time.Now()
	config.ID = uuid.NewString()
	config.CreatedAt = now
	config.UpdatedAt = now
	_, err := s.db.NewInsert().Model(config).Exec(ctx)
	return err
}

func (s *BunStorage) UpdateBotConfig(ctx context.Context, config *models.BotConfig) error {
	config.UpdatedAt = time.Now()
	res, err := s.db.NewUpdate().
		Model(config).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *BunStorage) SetBotConfigActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.NewUpdate().
		Model((*models.BotConfig)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *BunStorage) DeactivateAllBotConfigs(ctx context.Context) error {
	_, err := s.db.NewUpdate().
		Model((*models.BotConfig)(nil)).
		Set("is_active = ?", false).
		Set("updated_at = ?", time.Now()).
		Where("is_active = ?", true).
		Exec(ctx)
	return err
}

func (s *BunStorage) DeleteBotConfig(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().
		Model((*models.BotConfig)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *BunStorage) CreateCommandLog(ctx context.Context, log *models.CommandLog) error {
	log.ID = uuid.NewString()
	log.ExecutedAt = time.Now()
	_, err := s.db.NewInsert().Model(log).Exec(ctx)
	return err
}

func (s *BunStorage) GetCommandLogsByBotConfigID(ctx context.Context, botConfigID string, limit int) ([]*models.CommandLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	var logs []*models.CommandLog
	err := s.db.NewSelect().
		Model(&logs).
		Where("bot_config_id = ?", botConfigID).
		Order("executed_at DESC").
		Limit(limit).
		Scan(ctx)
	return logs, err
}

func (s *BunStorage) CreateUserReview(ctx context.Context, review *models.UserReview) error {
	review.ID = uuid.NewString()
	review.CreatedAt = time.Now()
	_, err := s.db.NewInsert().Model(review).Exec(ctx)
	return err
}

func (s *BunStorage) GetUserReviewsByBotConfigID(ctx context.Context, botConfigID string, limit int) ([]*models.UserReview, error) {
	if limit <= 0 {
		limit = DefaultReviewLimit
	}
	var reviews []*models.UserReview
	err := s.db.NewSelect().
		Model(&reviews).
		Where("bot_config_id = ?", botConfigID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	return reviews, err
}

func (s *BunStorage) CreateApiUsage(ctx context.Context, usage *models.ApiUsage) error {
	usage.ID = uuid.NewString()
	usage.CreatedAt = time.Now()
	_, err := s.db.NewInsert().Model(usage).Exec(ctx)
	return err
}

func (s *BunStorage) GetApiUsageByBotConfigID(ctx context.Context, botConfigID string, limit int) ([]*models.ApiUsage, error) {
	if limit <= 0 {
		limit = DefaultUsageLimit
	}
	var usages []*models.ApiUsage
	err := s.db.NewSelect().
		Model(&usages).
		Where("bot_config_id = ?", botConfigID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	return usages, err
}

func (s *BunStorage) GetBotConfigStats(ctx context.Context, botConfigID string) (*BotConfigStats, error) {
	stats := &BotConfigStats{}

	total, err := s.db.NewSelect().
		Model((*models.CommandLog)(nil)).
		Where("bot_config_id = ?", botConfigID).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count commands: %w", err)
	}
	stats.TotalCommands = total

	successful, err := s.db.NewSelect().
		Model((*models.CommandLog)(nil)).
		Where("bot_config_id = ?", botConfigID).
		Where("success = ?", true).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count successful commands: %w", err)
	}
	stats.SuccessfulCommands = successful

	// AVG skips NULL response times, which is exactly the contract: only
	// timed commands contribute.
	var avgResponse sql.NullFloat64
	err = s.db.NewSelect().
		Model((*models.CommandLog)(nil)).
		ColumnExpr("AVG(response_time)").
		Where("bot_config_id = ?", botConfigID).
		Scan(ctx, &avgResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to average response time: %w", err)
	}
	if avgResponse.Valid {
		stats.AvgResponseTime = avgResponse.Float64
	}

	var avgRating sql.NullFloat64
	err = s.db.NewSelect().
		Model((*models.UserReview)(nil)).
		ColumnExpr("AVG(rating)").
		Where("bot_config_id = ?", botConfigID).
		Scan(ctx, &avgRating)
	if err != nil {
		return nil, fmt.Errorf("failed to average rating: %w", err)
	}
	if avgRating.Valid {
		stats.AvgRating = avgRating.Float64
	}

	return stats, nil
}

func (s *BunStorage) GetDashboardStats(ctx context.Context, userID string) (*DashboardStats, error) {
	stats := &DashboardStats{}

	totalBots, err := s.db.NewSelect().
		Model((*models.BotConfig)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count bots: %w", err)
	}
	stats.TotalBots = totalBots

	activeBots, err := s.db.NewSelect().
		Model((*models.BotConfig)(nil)).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active bots: %w", err)
	}
	stats.ActiveBots = activeBots

	owned := s.db.NewSelect().
		Model((*models.BotConfig)(nil)).
		Column("id").
		Where("user_id = ?", userID)

	totalCommands, err := s.db.NewSelect().
		Model((*models.CommandLog)(nil)).
		Where("bot_config_id IN (?)", owned).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count commands: %w", err)
	}
	stats.TotalCommands = totalCommands

	if totalCommands > 0 {
		successful, err := s.db.NewSelect().
			Model((*models.CommandLog)(nil)).
			Where("bot_config_id IN (?)", owned).
			Where("success = ?", true).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count successful commands: %w", err)
		}
		stats.SuccessRate = int(math.Round(float64(successful) / float64(totalCommands) * 100))
	}

	return stats, nil
}

func (s *BunStorage) Close() error {
	return s.db.Close()
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
