package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goassist-bot/goassist/assistbot"
	"github.com/goassist-bot/goassist/assistbot/database"
	dbmodels "github.com/goassist-bot/goassist/assistbot/database/models"
)

const defaultDiscordAPIBase = "https://discord.com"

// DiscordUser represents a Discord user from the API
type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Email         string `json:"email"`
}

// AvatarURL builds the CDN URL for the user's avatar, empty when the user
// has none.
func (u *DiscordUser) AvatarURL() string {
	if u.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
}

// OAuthService handles the Discord OAuth2 flow and turns provider
// identities into local users.
type OAuthService struct {
	oauth      assistbot.OAuthConfig
	store      database.Storage
	httpClient *http.Client
	apiBase    string
}

func NewOAuthService(cfg assistbot.OAuthConfig, store database.Storage) *OAuthService {
	return &OAuthService{
		oauth: cfg,
		store: store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiBase: defaultDiscordAPIBase,
	}
}

// SetAPIBase points the service at a different Discord API origin. Tests
// use this to swap in a local mock.
func (o *OAuthService) SetAPIBase(base string) {
	o.apiBase = strings.TrimSuffix(base, "/")
}

// GenerateAuthURL generates the Discord OAuth2 authorization URL
func (o *OAuthService) GenerateAuthURL(state string) string {
	params := url.Values{}
	params.Set("client_id", o.oauth.ClientID)
	params.Set("redirect_uri", o.oauth.RedirectURL)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(o.oauth.Scopes, " "))
	params.Set("state", state)

	return o.apiBase + "/api/oauth2/authorize?" + params.Encode()
}

// ExchangeCodeForToken exchanges an authorization code for an access token
func (o *OAuthService) ExchangeCodeForToken(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("client_id", o.oauth.ClientID)
	data.Set("client_secret", o.oauth.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", o.oauth.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiBase+"/api/oauth2/token",
		strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", ErrProvider("Discord token endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Warn("Token exchange rejected",
			slog.String("type", "http"),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return "", ErrProvider("Discord rejected the authorization code")
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		Scope       string `json:"scope"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", ErrProvider("Discord returned a malformed token response")
	}
	if tokenResp.AccessToken == "" {
		return "", ErrProvider("Discord returned an empty access token")
	}

	return tokenResp.AccessToken, nil
}

// GetUserInfo gets Discord user information using an access token
func (o *OAuthService) GetUserInfo(ctx context.Context, accessToken string) (*DiscordUser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", o.apiBase+"/api/v10/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, ErrProvider("Discord user endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Warn("User info request rejected",
			slog.String("type", "http"),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return nil, ErrProvider("Discord rejected the access token")
	}

	var user DiscordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, ErrProvider("Discord returned a malformed user response")
	}
	if user.ID == "" {
		return nil, ErrProvider("Discord returned a user without an id")
	}

	return &user, nil
}

// CompleteAuth runs the whole bridge for one callback: token exchange,
// identity fetch, then a single local upsert. Any failure leaves the user
// table untouched.
func (o *OAuthService) CompleteAuth(ctx context.Context, code string) (*dbmodels.User, error) {
	token, err := o.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return nil, err
	}

	identity, err := o.GetUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	return o.UpsertUser(ctx, identity.ID, identity.Username, identity.AvatarURL(), identity.Email)
}

// UpsertUser creates or refreshes the local user for a Discord identity.
// Both the OAuth callback and the manual auth route land here so there is
// exactly one write path.
func (o *OAuthService) UpsertUser(ctx context.Context, discordID, username, avatarURL, email string) (*dbmodels.User, error) {
	user, err := o.store.GetUserByDiscordID(ctx, discordID)
	switch {
	case err == nil:
		user.Username = username
		user.AvatarURL = avatarURL
		user.Email = email
		user.LastLogin = time.Now()
		if err := o.store.UpdateUser(ctx, user); err != nil {
			return nil, WrapError(err, "failed to update user")
		}
	case errors.Is(err, database.ErrNotFound):
		user = &dbmodels.User{
			DiscordID: discordID,
			Username:  username,
			AvatarURL: avatarURL,
			Email:     email,
		}
		if err := o.store.CreateUser(ctx, user); err != nil {
			return nil, WrapError(err, "failed to create user")
		}
	default:
		return nil, WrapError(err, "failed to look up user")
	}

	slog.Info("User authenticated",
		slog.String("type", "http"),
		slog.String("discord_id", discordID),
		slog.String("username", username))
	return user, nil
}

// GenerateState generates a random state parameter for OAuth2
func (o *OAuthService) GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
