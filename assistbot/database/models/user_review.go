package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserReview is end-user feedback on a support response, immutable once
// created.
type UserReview struct {
	bun.BaseModel `bun:"table:user_reviews,alias:ur"`

	ID          string    `bun:"id,pk" json:"id"`
	BotConfigID string    `bun:"bot_config_id,notnull" json:"botConfigId"`
	Username    string    `bun:"username,notnull" json:"username"`
	Rating      int       `bun:"rating,notnull" json:"rating"`
	Feedback    string    `bun:"feedback" json:"feedback,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
}

const (
	MinRating = 1
	MaxRating = 5
)
