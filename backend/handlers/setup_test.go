package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/goassist-bot/goassist/assistbot"
	"github.com/goassist-bot/goassist/assistbot/botmgr"
	"github.com/goassist-bot/goassist/assistbot/database"
	dbmodels "github.com/goassist-bot/goassist/assistbot/database/models"
	"github.com/goassist-bot/goassist/backend/middleware"
	"github.com/goassist-bot/goassist/backend/services"
)

// stubConnection and stubConnector let lifecycle endpoints run without a
// gateway.
type stubConnection struct{}

func (stubConnection) Close(context.Context) error { return nil }

type stubConnector struct{}

func (stubConnector) Connect(context.Context, *dbmodels.BotConfig) (botmgr.Connection, error) {
	return stubConnection{}, nil
}

type testEnv struct {
	app    *fiber.App
	webApp *WebApp
	store  database.Storage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := database.NewMemoryStorage()
	cfg := &assistbot.Config{
		Web: assistbot.WebConfig{
			Environment:   "test",
			SessionSecret: "test-session-secret",
			OAuth: assistbot.OAuthConfig{
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				RedirectURL:  "http://localhost:5000/api/auth/discord/callback",
				Scopes:       []string{"identify", "email"},
			},
		},
	}

	sessionService, err := services.NewSessionService(cfg.Web.SessionSecret, cfg.Web.Environment)
	require.NoError(t, err)

	webApp := &WebApp{
		Config:         cfg,
		Store:          store,
		Manager:        botmgr.NewManager(store, stubConnector{}),
		OAuthService:   services.NewOAuthService(cfg.Web.OAuth, store),
		SessionService: sessionService,
		Version:        "test",
		StartedAt:      time.Now(),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.CustomErrorHandler,
	})
	SetupRoutes(app, webApp)

	return &testEnv{app: app, webApp: webApp, store: store}
}

// envelope mirrors the API response wrapper for assertions.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*http.Response, *envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	var env envelope
	if json.Valid(raw) {
		_ = json.Unmarshal(raw, &env)
	}
	return resp, &env
}

// login authenticates through the manual route and returns the session
// cookie.
func (e *testEnv) login(t *testing.T, discordID, username string) *http.Cookie {
	t.Helper()

	resp, env := e.do(t, "POST", "/api/auth/manual", map[string]string{
		"discordId": discordID,
		"username":  username,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == services.SessionCookieName {
			return cookie
		}
	}
	t.Fatal("no session cookie in manual auth response")
	return nil
}

// createConfig makes a configuration through the API for the session's
// user and returns its decoded model.
func (e *testEnv) createConfig(t *testing.T, session *http.Cookie, guildID string) *dbmodels.BotConfig {
	t.Helper()

	resp, env := e.do(t, "POST", "/api/bot-configs/", map[string]any{
		"guildId":   guildID,
		"guildName": "Guild " + guildID,
	}, session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var config dbmodels.BotConfig
	require.NoError(t, json.Unmarshal(env.Data, &config))
	return &config
}
