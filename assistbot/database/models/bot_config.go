package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BotConfig is a per-guild support bot configuration owned by a user.
//
// IsActive mirrors whether the lifecycle manager currently holds a live
// gateway connection for this configuration. It is written by the manager
// only and treated as a display cache everywhere else.
type BotConfig struct {
	bun.BaseModel `bun:"table:bot_configs,alias:bc"`

	ID              string     `bun:"id,pk" json:"id"`
	UserID          string     `bun:"user_id,notnull" json:"userId"`
	GuildID         string     `bun:"guild_id,notnull" json:"guildId"`
	GuildName       string     `bun:"guild_name,notnull" json:"guildName"`
	BotName         string     `bun:"bot_name" json:"botName"`
	AIModel         string     `bun:"ai_model" json:"aiModel"`
	SystemPrompt    string     `bun:"system_prompt" json:"systemPrompt"`
	PolicyContent   string     `bun:"policy_content" json:"policyContent"`
	AllowedChannels StringList `bun:"allowed_channels,type:text" json:"allowedChannels"`
	AllowedRoles    StringList `bun:"allowed_roles,type:text" json:"allowedRoles"`
	AdminOnly       bool       `bun:"admin_only,notnull,default:false" json:"adminOnly"`
	IsActive        bool       `bun:"is_active,notnull,default:false" json:"isActive"`
	PolicyUpdatedAt *time.Time `bun:"policy_updated_at" json:"policyUpdatedAt"`
	CreatedAt       time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

const (
	DefaultBotName = "Support Bot"
	DefaultAIModel = "openai/gpt-4o"
)
