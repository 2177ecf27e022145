package assistbot

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log LogConfig `toml:"log"`
	Bot BotConfig `toml:"bot"`
	Web WebConfig `toml:"web"`
	DB  DBConfig  `toml:"db"`
	AI  AIConfig  `toml:"ai"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type BotConfig struct {
	Token string `toml:"token"`
}

type WebConfig struct {
	Host          string      `toml:"host"`
	Port          int         `toml:"port"`
	Environment   string      `toml:"environment"`
	SessionSecret string      `toml:"session_secret"`
	FrontendURL   string      `toml:"frontend_url"`
	OAuth         OAuthConfig `toml:"oauth"`
}

type OAuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURL  string   `toml:"redirect_url"`
	Scopes       []string `toml:"scopes"`
}

// DBConfig selects the storage backend. Backend "memory" needs no other
// fields, "sqlite" needs Path, "postgres" needs the connection fields.
type DBConfig struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type AIConfig struct {
	Provider     string `toml:"provider"`
	DefaultModel string `toml:"default_model"`
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DISCORD_CLIENT_ID"); v != "" {
		c.Web.OAuth.ClientID = v
	}
	if v := os.Getenv("DISCORD_CLIENT_SECRET"); v != "" {
		c.Web.OAuth.ClientSecret = v
	}
	if v := os.Getenv("DISCORD_REDIRECT_URI"); v != "" {
		c.Web.OAuth.RedirectURL = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Web.SessionSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.Web.Port == 0 {
		c.Web.Port = 5000
	}
	if c.Web.Environment == "" {
		c.Web.Environment = "development"
	}
	if c.Web.OAuth.RedirectURL == "" {
		c.Web.OAuth.RedirectURL = fmt.Sprintf("http://localhost:%d/api/auth/discord/callback", c.Web.Port)
	}
	if len(c.Web.OAuth.Scopes) == 0 {
		c.Web.OAuth.Scopes = []string{"identify", "email", "guilds"}
	}
	if c.DB.Backend == "" {
		c.DB.Backend = "sqlite"
	}
	if c.DB.Backend == "sqlite" && c.DB.Path == "" {
		c.DB.Path = "goassist.db"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "openrouter"
	}
	if c.AI.DefaultModel == "" {
		c.AI.DefaultModel = "openai/gpt-4o"
	}
}

// Validate reports missing required values. OAuth credentials are only
// required in production so local development can use the manual auth route.
func (c *Config) Validate() []string {
	var missing []string
	if c.Web.Environment == "production" {
		if c.Web.OAuth.ClientID == "" {
			missing = append(missing, "web.oauth.client_id (or DISCORD_CLIENT_ID)")
		}
		if c.Web.OAuth.ClientSecret == "" {
			missing = append(missing, "web.oauth.client_secret (or DISCORD_CLIENT_SECRET)")
		}
		if c.Web.SessionSecret == "" {
			missing = append(missing, "web.session_secret (or SESSION_SECRET)")
		}
	}
	return missing
}
