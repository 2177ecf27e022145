package models

// CreateBotConfigRequest is the POST /api/bot-configs body. GuildID and
// GuildName are required; everything else falls back to defaults.
type CreateBotConfigRequest struct {
	GuildID         string   `json:"guildId"`
	GuildName       string   `json:"guildName"`
	BotName         string   `json:"botName"`
	AIModel         string   `json:"aiModel"`
	SystemPrompt    string   `json:"systemPrompt"`
	PolicyContent   string   `json:"policyContent"`
	AllowedChannels []string `json:"allowedChannels"`
	AllowedRoles    []string `json:"allowedRoles"`
	AdminOnly       bool     `json:"adminOnly"`
}

// ManualAuthRequest is the POST /api/auth/manual body, the development
// login path that skips the OAuth dance.
type ManualAuthRequest struct {
	DiscordID string `json:"discordId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	Email     string `json:"email"`
}

// CreateLogRequest is the POST /api/bot-configs/:id/logs body, used by
// external integrations that record command activity directly.
type CreateLogRequest struct {
	CommandName  string `json:"commandName"`
	Username     string `json:"username"`
	ChannelName  string `json:"channelName"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage"`
	ResponseTime *int   `json:"responseTime"`
}

// CreateReviewRequest is the POST /api/bot-configs/:id/reviews body.
type CreateReviewRequest struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}
