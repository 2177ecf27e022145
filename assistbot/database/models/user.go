package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a Discord account that has authenticated against the dashboard.
// Rows are created on first login and updated on every subsequent one,
// never deleted.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk" json:"id"`
	DiscordID string    `bun:"discord_id,notnull,unique" json:"discordId"`
	Username  string    `bun:"username,notnull" json:"username"`
	AvatarURL string    `bun:"avatar_url" json:"avatarUrl"`
	Email     string    `bun:"email" json:"email"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	LastLogin time.Time `bun:"last_login,notnull" json:"lastLogin"`
}
