package botmgr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"

	"github.com/goassist-bot/goassist/assistbot/database/models"
)

const gatewayTimeout = 10 * time.Second

// Connection is one live gateway session for a managed bot.
type Connection interface {
	Close(ctx context.Context) error
}

// Connector opens gateway connections. The manager talks to this seam so
// tests can run the full lifecycle without Discord.
type Connector interface {
	Connect(ctx context.Context, cfg *models.BotConfig) (Connection, error)
}

// GatewayConnector is the real Connector: a disgo client per managed bot,
// slash commands registered on the configured guild only.
type GatewayConnector struct {
	token      string
	dispatcher *Dispatcher
}

func NewGatewayConnector(token string, dispatcher *Dispatcher) *GatewayConnector {
	return &GatewayConnector{token: token, dispatcher: dispatcher}
}

type gatewayConnection struct {
	client bot.Client
}

func (c *gatewayConnection) Close(ctx context.Context) error {
	c.client.Close(ctx)
	return nil
}

func (g *GatewayConnector) Connect(ctx context.Context, cfg *models.BotConfig) (Connection, error) {
	guildID, err := snowflake.Parse(cfg.GuildID)
	if err != nil {
		return nil, fmt.Errorf("invalid guild id %q: %w", cfg.GuildID, err)
	}

	// Config is captured here; edits take effect on the next start.
	snapshot := *cfg

	client, err := disgo.New(g.token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListenerFunc(func(e *events.ApplicationCommandInteractionCreate) {
			if e.GuildID() == nil || *e.GuildID() != guildID {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()
			g.dispatcher.Handle(ctx, &snapshot, interactionView(e), &eventReplier{e: e})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot client: %w", err)
	}

	if _, err := client.Rest().SetGuildCommands(client.ApplicationID(), guildID, Commands); err != nil {
		return nil, fmt.Errorf("failed to register guild commands: %w", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	if err := client.OpenGateway(openCtx); err != nil {
		return nil, fmt.Errorf("failed to open gateway: %w", err)
	}

	slog.Info("Bot connected",
		slog.String("type", "sys"),
		slog.String("bot_config_id", cfg.ID),
		slog.String("guild_id", cfg.GuildID))
	return &gatewayConnection{client: client}, nil
}

func interactionView(e *events.ApplicationCommandInteractionCreate) Interaction {
	data := e.SlashCommandInteractionData()
	in := Interaction{
		Command:     data.CommandName(),
		UserID:      e.User().ID.String(),
		Username:    e.User().Username,
		ChannelID:   e.Channel().ID().String(),
		ChannelName: e.Channel().Name(),
	}
	if member := e.Member(); member != nil {
		in.IsAdmin = member.Permissions.Has(discord.PermissionAdministrator)
		for _, role := range member.RoleIDs {
			in.RoleIDs = append(in.RoleIDs, role.String())
		}
	}
	if question, ok := data.OptString("question"); ok {
		in.Question = question
	}
	if rating, ok := data.OptInt("rating"); ok {
		in.Rating = rating
	}
	if feedback, ok := data.OptString("feedback"); ok {
		in.Feedback = feedback
	}
	return in
}

// eventReplier adapts one disgo interaction event to the Replier contract.
type eventReplier struct {
	e       *events.ApplicationCommandInteractionCreate
	replied bool
}

func (r *eventReplier) Reply(content string, ephemeral bool) error {
	builder := discord.NewMessageCreateBuilder().SetContent(content)
	if ephemeral {
		builder.SetEphemeral(true)
	}
	if err := r.e.CreateMessage(builder.Build()); err != nil {
		return err
	}
	r.replied = true
	return nil
}

func (r *eventReplier) Defer(ephemeral bool) error {
	if err := r.e.DeferCreateMessage(ephemeral); err != nil {
		return err
	}
	r.replied = true
	return nil
}

func (r *eventReplier) Followup(content string, ephemeral bool) error {
	builder := discord.NewMessageCreateBuilder().SetContent(content)
	if ephemeral {
		builder.SetEphemeral(true)
	}
	_, err := r.e.Client().Rest().CreateFollowupMessage(
		r.e.ApplicationID(), r.e.Token(), builder.Build())
	if err != nil {
		return err
	}
	r.replied = true
	return nil
}

func (r *eventReplier) Replied() bool {
	return r.replied
}
