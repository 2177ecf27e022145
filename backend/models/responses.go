package models

import (
	"time"
)

// APIResponse is the standard response envelope for every JSON endpoint.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries the machine-readable error code plus a human message.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewSuccessResponse creates a successful API response
func NewSuccessResponse(data interface{}, message string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewErrorResponse creates an error API response
func NewErrorResponse(code, message string, details map[string]string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	}
}

// BotStatusResponse reports the live state of one managed bot.
type BotStatusResponse struct {
	BotConfigID string `json:"botConfigId"`
	Running     bool   `json:"running"`
	IsActive    bool   `json:"isActive"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// AuthURLResponse carries the Discord authorization URL for the frontend
// popup.
type AuthURLResponse struct {
	AuthURL string `json:"authUrl"`
}

// InviteResponse carries the bot invite URL.
type InviteResponse struct {
	InviteURL string `json:"inviteUrl"`
}
