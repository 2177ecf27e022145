package services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	lru "github.com/hashicorp/golang-lru"

	"github.com/goassist-bot/goassist/backend/models"
)

const (
	SessionCookieName = "goassist_session"
	StateCookieName   = "oauth_state"

	// Absolute lifetime. Sessions are not renewed on activity.
	sessionTTL = 24 * time.Hour
	stateTTL   = 10 * time.Minute

	// Bound on concurrent sessions; oldest get evicted, which just forces
	// a re-login.
	sessionCapacity = 4096
)

// SessionService keeps sessions server-side, keyed by a random token.
// The cookie carries only the token, never session data.
type SessionService struct {
	secret      string
	environment string
	sessions    *lru.Cache
}

func NewSessionService(secret, environment string) (*SessionService, error) {
	cache, err := lru.New(sessionCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &SessionService{
		secret:      secret,
		environment: environment,
		sessions:    cache,
	}, nil
}

// CreateSession stores a new session for the user and sets the cookie.
func (s *SessionService) CreateSession(c *fiber.Ctx, user *models.UserSession) error {
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	user.Token = token
	user.CreatedAt = now
	user.ExpiresAt = now.Add(sessionTTL)
	s.sessions.Add(token, user)

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL / time.Second),
		Secure:   s.environment == "production",
		HTTPOnly: true,
		SameSite: "Lax",
	})

	slog.Info("Session created",
		slog.String("type", "http"),
		slog.String("discord_id", user.DiscordID),
		slog.String("username", user.Username))
	return nil
}

// GetSession resolves the request cookie to a live session. Expired
// sessions are evicted on sight.
func (s *SessionService) GetSession(c *fiber.Ctx) (*models.UserSession, error) {
	token := c.Cookies(SessionCookieName)
	if token == "" {
		return nil, fmt.Errorf("no session cookie found")
	}

	value, ok := s.sessions.Get(token)
	if !ok {
		return nil, fmt.Errorf("unknown session token")
	}

	session, ok := value.(*models.UserSession)
	if !ok {
		s.sessions.Remove(token)
		return nil, fmt.Errorf("corrupt session entry")
	}

	if session.Expired() {
		s.sessions.Remove(token)
		s.clearCookie(c, SessionCookieName)
		return nil, fmt.Errorf("session expired")
	}

	return session, nil
}

// DestroySession drops the server-side session and clears the cookie.
func (s *SessionService) DestroySession(c *fiber.Ctx) {
	if token := c.Cookies(SessionCookieName); token != "" {
		s.sessions.Remove(token)
	}
	s.clearCookie(c, SessionCookieName)

	slog.Info("Session destroyed",
		slog.String("type", "http"),
		slog.String("ip", c.IP()))
}

// SetState sets the OAuth state parameter in a signed, short-lived cookie.
func (s *SessionService) SetState(c *fiber.Ctx, state string) error {
	signedState, err := s.signData([]byte(state))
	if err != nil {
		return fmt.Errorf("failed to sign state: %w", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    signedState,
		Path:     "/",
		MaxAge:   int(stateTTL / time.Second),
		Secure:   s.environment == "production",
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return nil
}

// GetAndClearState retrieves and clears the OAuth state parameter. The
// cookie is single-use whatever the outcome.
func (s *SessionService) GetAndClearState(c *fiber.Ctx) (string, error) {
	stateCookie := c.Cookies(StateCookieName)
	if stateCookie == "" {
		return "", fmt.Errorf("no state cookie found")
	}

	s.clearCookie(c, StateCookieName)

	stateData, err := s.verifyAndDecodeData(stateCookie)
	if err != nil {
		return "", fmt.Errorf("invalid state signature: %w", err)
	}

	return string(stateData), nil
}

func (s *SessionService) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.environment == "production",
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// signData signs data using HMAC-SHA256
func (s *SessionService) signData(data []byte) (string, error) {
	if s.secret == "" {
		return "", fmt.Errorf("session secret not configured")
	}

	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write(data)
	signature := h.Sum(nil)

	combined := append(data, signature...)
	return base64.URLEncoding.EncodeToString(combined), nil
}

// verifyAndDecodeData verifies the signature and returns the original data
func (s *SessionService) verifyAndDecodeData(encodedData string) ([]byte, error) {
	if s.secret == "" {
		return nil, fmt.Errorf("session secret not configured")
	}

	combined, err := base64.URLEncoding.DecodeString(encodedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}

	if len(combined) < sha256.Size {
		return nil, fmt.Errorf("invalid data length")
	}

	data := combined[:len(combined)-sha256.Size]
	receivedSignature := combined[len(combined)-sha256.Size:]

	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write(data)
	expectedSignature := h.Sum(nil)

	if !hmac.Equal(receivedSignature, expectedSignature) {
		return nil, fmt.Errorf("signature verification failed")
	}

	return data, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
