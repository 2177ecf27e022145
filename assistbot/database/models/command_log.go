package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CommandLog records one slash-command invocation. Rows are append-only.
// ResponseTime is nil when the handler never produced a timed response.
type CommandLog struct {
	bun.BaseModel `bun:"table:command_logs,alias:cl"`

	ID           string    `bun:"id,pk" json:"id"`
	BotConfigID  string    `bun:"bot_config_id,notnull" json:"botConfigId"`
	CommandName  string    `bun:"command_name,notnull" json:"commandName"`
	Username     string    `bun:"username,notnull" json:"username"`
	ChannelName  string    `bun:"channel_name,notnull" json:"channelName"`
	Success      bool      `bun:"success,notnull" json:"success"`
	ErrorMessage string    `bun:"error_message" json:"errorMessage,omitempty"`
	ResponseTime *int      `bun:"response_time" json:"responseTime"`
	ExecutedAt   time.Time `bun:"executed_at,notnull" json:"executedAt"`
}
