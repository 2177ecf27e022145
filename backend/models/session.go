package models

import "time"

// UserSession is the server-side session record. The cookie only carries
// the opaque token that keys it.
type UserSession struct {
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	DiscordID string    `json:"discordId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session has passed its absolute lifetime.
// Sessions are never renewed on activity.
func (s *UserSession) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
