package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/goassist-bot/goassist/backend/middleware"
	"github.com/goassist-bot/goassist/backend/models"
	"github.com/goassist-bot/goassist/backend/utils"
)

// DiscordOAuth begins the OAuth flow: generates a state, stores it in a
// signed cookie, and hands the frontend the authorization URL to open in
// a popup.
func DiscordOAuth(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := webApp.OAuthService.GenerateState()
		if err != nil {
			slog.Error("Failed to generate oauth state",
				slog.String("type", "http"),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to start authentication")
		}

		if err := webApp.SessionService.SetState(c, state); err != nil {
			return utils.SendInternalServerError(c, "Failed to start authentication")
		}

		return utils.SendSuccess(c, models.AuthURLResponse{
			AuthURL: webApp.OAuthService.GenerateAuthURL(state),
		}, "")
	}
}

// OAuthCallback finishes the flow. The response is a small HTML page: in a
// popup it posts the result to the opener and closes itself; opened
// directly (Safari) it redirects instead.
func OAuthCallback(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if errParam := c.Query("error"); errParam != "" {
			slog.Warn("OAuth consent denied",
				slog.String("type", "http"),
				slog.String("error", errParam))
			return sendCallbackError(c)
		}

		code := c.Query("code")
		if code == "" {
			return sendCallbackError(c)
		}

		expectedState, err := webApp.SessionService.GetAndClearState(c)
		if err != nil || expectedState == "" || c.Query("state") != expectedState {
			slog.Warn("OAuth state mismatch",
				slog.String("type", "http"),
				slog.String("ip", c.IP()))
			return sendCallbackError(c)
		}

		user, err := webApp.OAuthService.CompleteAuth(c.Context(), code)
		if err != nil {
			slog.Error("OAuth completion failed",
				slog.String("type", "http"),
				slog.Any("error", err))
			return sendCallbackError(c)
		}

		session := &models.UserSession{
			UserID:    user.ID,
			DiscordID: user.DiscordID,
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
			Email:     user.Email,
		}
		if err := webApp.SessionService.CreateSession(c, session); err != nil {
			slog.Error("Failed to create session",
				slog.String("type", "http"),
				slog.Any("error", err))
			return sendCallbackError(c)
		}

		return sendCallbackSuccess(c, user)
	}
}

// ManualAuth is the development login path: it takes a Discord identity
// directly and runs it through the same upsert as the OAuth callback.
func ManualAuth(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.ManualAuthRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}

		details := map[string]string{}
		if strings.TrimSpace(req.DiscordID) == "" {
			details["discordId"] = "required"
		}
		if strings.TrimSpace(req.Username) == "" {
			details["username"] = "required"
		}
		if len(details) > 0 {
			return utils.SendValidationError(c, "Missing required fields", details)
		}

		user, err := webApp.OAuthService.UpsertUser(c.Context(),
			req.DiscordID, req.Username, req.AvatarURL, req.Email)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		session := &models.UserSession{
			UserID:    user.ID,
			DiscordID: user.DiscordID,
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
			Email:     user.Email,
		}
		if err := webApp.SessionService.CreateSession(c, session); err != nil {
			return utils.SendInternalServerError(c, "Failed to create session")
		}

		return utils.SendSuccess(c, user, "Authenticated")
	}
}

// Logout destroys the server-side session.
func Logout(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		webApp.SessionService.DestroySession(c)
		return utils.SendSuccess(c, nil, "Logged out")
	}
}

// CurrentUser returns the authenticated user's stored record.
func CurrentUser(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := middleware.RequireSession(c)
		if err != nil {
			return utils.SendServiceError(c, err)
		}

		user, err := webApp.Store.GetUser(c.Context(), session.UserID)
		if err != nil {
			return utils.SendNotFound(c, "USER_NOT_FOUND", "User not found")
		}

		return utils.SendSuccess(c, user, "")
	}
}

func sendCallbackSuccess(c *fiber.Ctx, user any) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return sendCallbackError(c)
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <title>Authentication Success</title>
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; text-align: center; padding: 2rem;">
  <h2 style="color: #10b981;">Authentication Successful</h2>
  <p>You can close this window.</p>
  <script>
    try {
      if (window.opener) {
        window.opener.postMessage({ type: 'DISCORD_AUTH_SUCCESS', user: %s }, '*');
        setTimeout(function() { window.close(); }, 1000);
      } else {
        window.location.href = '/dashboard';
      }
    } catch (error) {
      window.location.href = '/dashboard';
    }
  </script>
</body>
</html>`, payload)

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

func sendCallbackError(c *fiber.Ctx) error {
	const html = `<!DOCTYPE html>
<html>
<head>
  <title>Authentication Error</title>
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; text-align: center; padding: 2rem;">
  <h2 style="color: #ef4444;">Authentication Failed</h2>
  <p>Please try again. You can close this window.</p>
  <script>
    try {
      if (window.opener) {
        window.opener.postMessage({ type: 'DISCORD_AUTH_ERROR', error: 'Authentication failed' }, '*');
        setTimeout(function() { window.close(); }, 2000);
      } else {
        window.location.href = '/';
      }
    } catch (error) {
      window.location.href = '/';
    }
  </script>
</body>
</html>`

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}
