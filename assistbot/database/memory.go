package database

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goassist-bot/goassist/assistbot/database/models"
)

// MemoryStorage keeps everything in process-local maps. It exists for
// development and tests; contents are lost on restart.
type MemoryStorage struct {
	mu          sync.RWMutex
	users       map[string]models.User
	botConfigs  map[string]models.BotConfig
	commandLogs map[string]models.CommandLog
	userReviews map[string]models.UserReview
	apiUsage    map[string]models.ApiUsage
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:       make(map[string]models.User),
		botConfigs:  make(map[string]models.BotConfig),
		commandLogs: make(map[string]models.CommandLog),
		userReviews: make(map[string]models.UserReview),
		apiUsage:    make(map[string]models.ApiUsage),
	}
}

func (s *MemoryStorage) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStorage) GetUserByDiscordID(_ context.Context, discordID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.DiscordID == discordID {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same uniqueness the database backend gets from its constraint.
	for _, existing := range s.users {
		if existing.DiscordID == user.DiscordID {
			return fmt.Errorf("user with discord id %q already exists", user.DiscordID)
		}
	}
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.LastLogin = now
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStorage) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStorage) GetBotConfig(_ context.Context, id string) (*models.BotConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	config, ok := s.botConfigs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &config, nil
}

func (s *MemoryStorage) GetBotConfigByGuildID(_ context.Context, guildID, userID string) (*models.BotConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, config := range s.botConfigs {
		if config.GuildID == guildID && config.UserID == userID {
			c := config
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) GetBotConfigsByUserID(_ context.Context, userID string) ([]*models.BotConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var configs []*models.BotConfig
	for _, config := range s.botConfigs {
		if config.UserID == userID {
			c := config
			configs = append(configs, &c)
		}
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].CreatedAt.Before(configs[j].CreatedAt)
	})
	return configs, nil
}

func (s *MemoryStorage) CreateBotConfig(_ context.Context, config *models.BotConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	config.ID = uuid.NewString()
	config.CreatedAt = now
	config.UpdatedAt = now
	s.botConfigs[config.ID] = *config
	return nil
}

func (s *MemoryStorage) UpdateBotConfig(_ context.Context, config *models.BotConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.botConfigs[config.ID]; !ok {
		return ErrNotFound
	}
	config.UpdatedAt = time.Now()
	s.botConfigs[config.ID] = *config
	return nil
}

func (s *MemoryStorage) SetBotConfigActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	config, ok := s.botConfigs[id]
	if !ok {
		return ErrNotFound
	}
	config.IsActive = active
	config.UpdatedAt = time.Now()
	s.botConfigs[id] = config
	return nil
}

func (s *MemoryStorage) DeactivateAllBotConfigs(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, config := range s.botConfigs {
		if config.IsActive {
			config.IsActive = false
			s.botConfigs[id] = config
		}
	}
	return nil
}

func (s *MemoryStorage) DeleteBotConfig(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.botConfigs[id]; !ok {
		return ErrNotFound
	}
	delete(s.botConfigs, id)
	return nil
}

func (s *MemoryStorage) CreateCommandLog(_ context.Context, log *models.CommandLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.ID = uuid.NewString()
	log.ExecutedAt = time.Now()
	s.commandLogs[log.ID] = *log
	return nil
}

func (s *MemoryStorage) GetCommandLogsByBotConfigID(_ context.Context, botConfigID string, limit int) ([]*models.CommandLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var logs []*models.CommandLog
	for _, log := range s.commandLogs {
		if log.BotConfigID == botConfigID {
			l := log
			logs = append(logs, &l)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].ExecutedAt.After(logs[j].ExecutedAt)
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *MemoryStorage) CreateUserReview(_ context.Context, review *models.UserReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	review.ID = uuid.NewString()
	review.CreatedAt = time.Now()
	s.userReviews[review.ID] = *review
	return nil
}

func (s *MemoryStorage) GetUserReviewsByBotConfigID(_ context.Context, botConfigID string, limit int) ([]*models.UserReview, error) {
	if limit <= 0 {
		limit = DefaultReviewLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reviews []*models.UserReview
	for _, review := range s.userReviews {
		if review.BotConfigID == botConfigID {
			r := review
			reviews = append(reviews, &r)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	if len(reviews) > limit {
		reviews = reviews[:limit]
	}
	return reviews, nil
}

func (s *MemoryStorage) CreateApiUsage(_ context.Context, usage *models.ApiUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage.ID = uuid.NewString()
	usage.CreatedAt = time.Now()
	s.apiUsage[usage.ID] = *usage
	return nil
}

func (s *MemoryStorage) GetApiUsageByBotConfigID(_ context.Context, botConfigID string, limit int) ([]*models.ApiUsage, error) {
	if limit <= 0 {
		limit = DefaultUsageLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var usages []*models.ApiUsage
	for _, usage := range s.apiUsage {
		if usage.BotConfigID == botConfigID {
			u := usage
			usages = append(usages, &u)
		}
	}
	sort.Slice(usages, func(i, j int) bool {
		return usages[i].CreatedAt.After(usages[j].CreatedAt)
	})
	if len(usages) > limit {
		usages = usages[:limit]
	}
	return usages, nil
}

func (s *MemoryStorage) GetBotConfigStats(_ context.Context, botConfigID string) (*BotConfigStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &BotConfigStats{}
	var timed, timedTotal int
	for _, log := range s.commandLogs {
		if log.BotConfigID != botConfigID {
			continue
		}
		stats.TotalCommands++
		if log.Success {
			stats.SuccessfulCommands++
		}
		if log.ResponseTime != nil {
			timed++
			timedTotal += *log.ResponseTime
		}
	}
	if timed > 0 {
		stats.AvgResponseTime = float64(timedTotal) / float64(timed)
	}

	var ratings, ratingTotal int
	for _, review := range s.userReviews {
		if review.BotConfigID == botConfigID {
			ratings++
			ratingTotal += review.Rating
		}
	}
	if ratings > 0 {
		stats.AvgRating = float64(ratingTotal) / float64(ratings)
	}
	return stats, nil
}

func (s *MemoryStorage) GetDashboardStats(_ context.Context, userID string) (*DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &DashboardStats{}
	owned := make(map[string]bool)
	for _, config := range s.botConfigs {
		if config.UserID == userID {
			owned[config.ID] = true
			stats.TotalBots++
			if config.IsActive {
				stats.ActiveBots++
			}
		}
	}

	var successful int
	for _, log := range s.commandLogs {
		if owned[log.BotConfigID] {
			stats.TotalCommands++
			if log.Success {
				successful++
			}
		}
	}
	if stats.TotalCommands > 0 {
		stats.SuccessRate = int(math.Round(float64(successful) / float64(stats.TotalCommands) * 100))
	}
	return stats, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
