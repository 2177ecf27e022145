package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ApiUsage is an accounting record for one model call. Cost is in
// hundredths of a cent and nil when the provider did not report one.
type ApiUsage struct {
	bun.BaseModel `bun:"table:api_usage,alias:au"`

	ID          string    `bun:"id,pk" json:"id"`
	BotConfigID string    `bun:"bot_config_id,notnull" json:"botConfigId"`
	Provider    string    `bun:"provider,notnull" json:"provider"`
	Model       string    `bun:"model,notnull" json:"model"`
	TokensUsed  int       `bun:"tokens_used,notnull" json:"tokensUsed"`
	Cost        *int      `bun:"cost" json:"cost"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
}
