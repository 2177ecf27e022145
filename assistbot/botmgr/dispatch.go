package botmgr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goassist-bot/goassist/assistbot/ai"
	"github.com/goassist-bot/goassist/assistbot/database"
	"github.com/goassist-bot/goassist/assistbot/database/models"
)

const (
	handlerTimeout = 15 * time.Second

	rejectChannelMsg = "This bot does not answer in this channel."
	rejectAdminMsg   = "This bot only answers server administrators."
	rejectRoleMsg    = "You do not have a role this bot answers to."
	genericErrorMsg  = "Something went wrong handling your command. Please try again later."
	unknownCmdMsg    = "I don't know that command. Try /help."
)

// Interaction is the slice of a slash-command event the dispatcher needs.
// The gateway connector builds it from the real disgo event; tests build
// it directly.
type Interaction struct {
	Command     string
	UserID      string
	Username    string
	ChannelID   string
	ChannelName string
	RoleIDs     []string
	IsAdmin     bool

	// Command options.
	Question string
	Rating   int
	Feedback string
}

// Replier answers one interaction. Replied reports whether any response
// (including a deferral) has gone out, so error paths answer exactly once.
type Replier interface {
	Reply(content string, ephemeral bool) error
	Defer(ephemeral bool) error
	Followup(content string, ephemeral bool) error
	Replied() bool
}

// Dispatcher authorizes, routes, and logs every slash command for the
// managed bots. One dispatcher serves all connections.
type Dispatcher struct {
	store     database.Storage
	generator ai.Generator
}

func NewDispatcher(store database.Storage, generator ai.Generator) *Dispatcher {
	return &Dispatcher{store: store, generator: generator}
}

// Handle runs one interaction against the configuration the connection was
// started with. Unauthorized interactions are rejected without a log row;
// authorized ones produce exactly one CommandLog whatever the handler does.
func (d *Dispatcher) Handle(ctx context.Context, cfg *models.BotConfig, in Interaction, r Replier) {
	if msg, ok := d.authorize(cfg, in); !ok {
		if err := r.Reply(msg, true); err != nil {
			slog.Error("Failed to send rejection",
				slog.String("type", "cmd"),
				slog.String("command", in.Command),
				slog.Any("error", err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	start := time.Now()
	timed, err := d.route(ctx, cfg, in, r)
	elapsed := int(time.Since(start).Milliseconds())

	log := &models.CommandLog{
		BotConfigID: cfg.ID,
		CommandName: in.Command,
		Username:    in.Username,
		ChannelName: in.ChannelName,
		Success:     err == nil,
	}
	if timed {
		log.ResponseTime = &elapsed
	}
	if err != nil {
		log.ErrorMessage = err.Error()
	}
	if logErr := d.store.CreateCommandLog(ctx, log); logErr != nil {
		slog.Error("Failed to record command log",
			slog.String("type", "db"),
			slog.String("bot_config_id", cfg.ID),
			slog.Any("error", logErr))
	}

	if err != nil {
		slog.Error("Command failed",
			slog.String("type", "cmd"),
			slog.String("command", in.Command),
			slog.String("user_name", in.Username),
			slog.Any("error", err))
		// The user still gets an answer, but never a second one.
		if !r.Replied() {
			if replyErr := r.Reply(genericErrorMsg, true); replyErr != nil {
				slog.Error("Failed to send error reply",
					slog.String("type", "cmd"),
					slog.Any("error", replyErr))
			}
		} else {
			if fErr := r.Followup(genericErrorMsg, true); fErr != nil {
				slog.Error("Failed to send error followup",
					slog.String("type", "cmd"),
					slog.Any("error", fErr))
			}
		}
		return
	}

	slog.Info("Command completed",
		slog.String("type", "cmd"),
		slog.String("command", in.Command),
		slog.String("user_name", in.Username),
		slog.Duration("took", time.Since(start)))
}

// authorize runs before anything is logged. Returns the rejection message
// when the interaction must not reach a handler.
func (d *Dispatcher) authorize(cfg *models.BotConfig, in Interaction) (string, bool) {
	if len(cfg.AllowedChannels) > 0 && !cfg.AllowedChannels.Contains(in.ChannelID) {
		return rejectChannelMsg, false
	}
	if cfg.AdminOnly && !in.IsAdmin {
		return rejectAdminMsg, false
	}
	if len(cfg.AllowedRoles) > 0 && !in.IsAdmin {
		allowed := false
		for _, role := range in.RoleIDs {
			if cfg.AllowedRoles.Contains(role) {
				allowed = true
				break
			}
		}
		if !allowed {
			return rejectRoleMsg, false
		}
	}
	return "", true
}

// route returns whether the handler is a timed one (support answers carry
// a response time; instant replies do not).
func (d *Dispatcher) route(ctx context.Context, cfg *models.BotConfig, in Interaction, r Replier) (bool, error) {
	switch in.Command {
	case "help":
		return false, d.handleHelp(cfg, r)
	case "support":
		return true, d.handleSupport(ctx, cfg, in, r)
	case "review":
		return false, d.handleReview(ctx, cfg, in, r)
	default:
		return false, r.Reply(unknownCmdMsg, true)
	}
}

func (d *Dispatcher) handleHelp(cfg *models.BotConfig, r Replier) error {
	name := cfg.BotName
	if name == "" {
		name = models.DefaultBotName
	}
	content := fmt.Sprintf(
		"**%s** for %s\n"+
			"`/support question:<text>` — ask a support question\n"+
			"`/review rating:<1-5>` — rate the support you received\n"+
			"`/help` — this message",
		name, cfg.GuildName)
	if cfg.AdminOnly {
		content += "\nThis bot only answers server administrators."
	}
	return r.Reply(content, false)
}

func (d *Dispatcher) handleSupport(ctx context.Context, cfg *models.BotConfig, in Interaction, r Replier) error {
	// Generation can outlast Discord's 3 second window, so defer first.
	if err := r.Defer(false); err != nil {
		return fmt.Errorf("failed to defer reply: %w", err)
	}

	resp, err := d.generator.Generate(ctx, in.Question, cfg.PolicyContent, cfg)
	if err != nil {
		return fmt.Errorf("failed to generate answer: %w", err)
	}

	if err := d.store.CreateApiUsage(ctx, &models.ApiUsage{
		BotConfigID: cfg.ID,
		Provider:    resp.Provider,
		Model:       resp.Model,
		TokensUsed:  resp.TokensUsed,
	}); err != nil {
		// Accounting must not eat the answer.
		slog.Error("Failed to record api usage",
			slog.String("type", "db"),
			slog.String("bot_config_id", cfg.ID),
			slog.Any("error", err))
	}

	return r.Followup(resp.Content, false)
}

func (d *Dispatcher) handleReview(ctx context.Context, cfg *models.BotConfig, in Interaction, r Replier) error {
	if in.Rating < models.MinRating || in.Rating > models.MaxRating {
		return r.Reply(fmt.Sprintf("Rating must be between %d and %d.", models.MinRating, models.MaxRating), true)
	}

	if err := d.store.CreateUserReview(ctx, &models.UserReview{
		BotConfigID: cfg.ID,
		Username:    in.Username,
		Rating:      in.Rating,
		Feedback:    in.Feedback,
	}); err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	return r.Reply("Thanks for your feedback!", true)
}
