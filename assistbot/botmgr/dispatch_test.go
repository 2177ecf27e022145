package botmgr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goassist-bot/goassist/assistbot/ai"
	"github.com/goassist-bot/goassist/assistbot/database"
	"github.com/goassist-bot/goassist/assistbot/database/models"
)

type recordedReply struct {
	kind      string // "reply", "defer", "followup"
	content   string
	ephemeral bool
}

type fakeReplier struct {
	replies []recordedReply
}

func (r *fakeReplier) Reply(content string, ephemeral bool) error {
	r.replies = append(r.replies, recordedReply{"reply", content, ephemeral})
	return nil
}

func (r *fakeReplier) Defer(ephemeral bool) error {
	r.replies = append(r.replies, recordedReply{"defer", "", ephemeral})
	return nil
}

func (r *fakeReplier) Followup(content string, ephemeral bool) error {
	r.replies = append(r.replies, recordedReply{"followup", content, ephemeral})
	return nil
}

func (r *fakeReplier) Replied() bool {
	return len(r.replies) > 0
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string, string, *models.BotConfig) (*ai.Response, error) {
	return nil, errors.New("provider unavailable")
}

func newDispatchFixture(t *testing.T, gen ai.Generator) (*Dispatcher, database.Storage, *models.BotConfig) {
	t.Helper()
	store := database.NewMemoryStorage()
	ctx := context.Background()

	user := &models.User{DiscordID: "owner", Username: "owner"}
	require.NoError(t, store.CreateUser(ctx, user))

	config := &models.BotConfig{
		UserID:    user.ID,
		GuildID:   "guild",
		GuildName: "Test Guild",
		BotName:   models.DefaultBotName,
	}
	require.NoError(t, store.CreateBotConfig(ctx, config))

	return NewDispatcher(store, gen), store, config
}

func logsFor(t *testing.T, store database.Storage, configID string) []*models.CommandLog {
	t.Helper()
	logs, err := store.GetCommandLogsByBotConfigID(context.Background(), configID, 0)
	require.NoError(t, err)
	return logs
}

func TestDispatch_Help(t *testing.T) {
	d, store, cfg := newDispatchFixture(t, ai.StaticGenerator{})
	r := &fakeReplier{}

	d.Handle(context.Background(), cfg, Interaction{
		Command: "help", Username: "member", ChannelID: "c1", ChannelName: "support",
	}, r)

	require.Len(t, r.replies, 1)
	assert.Equal(t, "reply", r.replies[0].kind)
	assert.Contains(t, r.replies[0].content, models.DefaultBotName)

	logs := logsFor(t, store, cfg.ID)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, "help", logs[0].CommandName)
	assert.Nil(t, logs[0].ResponseTime)
}

func TestDispatch_SupportRecordsUsageAndTiming(t *testing.T) {
	d, store, cfg := newDispatchFixture(t, ai.StaticGenerator{})
	r := &fakeReplier{}

	d.Handle(context.Background(), cfg, Interaction{
		Command: "support", Username: "member", ChannelID: "c1", ChannelName: "support",
		Question: "How do refunds work?",
	}, r)

	require.Len(t, r.replies, 2)
	assert.Equal(t, "defer", r.replies[0].kind)
	assert.Equal(t, "followup", r.replies[1].kind)
	assert.Contains(t, r.replies[1].content, "How do refunds work?")

	logs := logsFor(t, store, cfg.ID)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	require.NotNil(t, logs[0].ResponseTime)

	usages, err := store.GetApiUsageByBotConfigID(context.Background(), cfg.ID, 0)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "static", usages[0].Provider)
	assert.Positive(t, usages[0].TokensUsed)
}

func TestDispatch_SupportGeneratorFailureStillAnswers(t *testing.T) {
	d, store, cfg := newDispatchFixture(t, failingGenerator{})
	r := &fakeReplier{}

	d.Handle(context.Background(), cfg, Interaction{
		Command: "support", Username: "member", ChannelID: "c1", ChannelName: "support",
		Question: "anything",
	}, r)

	// Deferred, then exactly one error followup.
	require.Len(t, r.replies, 2)
	assert.Equal(t, "defer", r.replies[0].kind)
	assert.Equal(t, "followup", r.replies[1].kind)
	assert.Equal(t, genericErrorMsg, r.replies[1].content)
	assert.True(t, r.replies[1].ephemeral)

	logs := logsFor(t, store, cfg.ID)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Contains(t, logs[0].ErrorMessage, "provider unavailable")
}

func TestDispatch_Review(t *testing.T) {
	d, store, cfg := newDispatchFixture(t, ai.StaticGenerator{})
	r := &fakeReplier{}

	d.Handle(context.Background(), cfg, Interaction{
		Command: "review", Username: "member", ChannelID: "c1", ChannelName: "support",
		Rating: 4, Feedback: "quick and clear",
	}, r)

	reviews, err := store.GetUserReviewsByBotConfigID(context.Background(), cfg.ID, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 4, reviews[0].Rating)
	assert.Equal(t, "quick and clear", reviews[0].Feedback)

	logs := logsFor(t, store, cfg.ID)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
}

func TestDispatch_ReviewRatingOutOfRange(t *testing.T) {
	d, store, cfg := newDispatchFixture(t, ai.StaticGenerator{})
	r := &fakeReplier{}

	d.Handle(context.Background(), cfg, Interaction{
		Command: "review", Username: "member", ChannelID: "c1", ChannelName: "support",
		Rating: 9,
	}, r)

	reviews, err := store.GetUserReviewsByBotConfigID(context.Background(), cfg.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	// The invalid attempt is still an answered, logged command.
	require.Len(t, r.replies, 1)
	assert.True(t, r.replies[0].ephemeral)
	logs := logsFor(t, store, cfg.ID)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d, store, cfg := newDispatchFixture(t, ai.StaticGenerator{})
	r := &fakeReplier{}

	d.Handle(context.Background(), cfg, Interaction{
		Command: "ping", Username: "member", ChannelID: "c1", ChannelName: "support",
	}, r)

	require.Len(t, r.replies, 1)
	assert.Equal(t, unknownCmdMsg, r.replies[0].content)

	logs := logsFor(t, store, cfg.ID)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
}

func TestDispatch_ChannelAllowList(t *testing.T) {
	d, store, cfg := newDispatchFixture(t, ai.StaticGenerator{})
	cfg.AllowedChannels = models.StringList{"allowed-channel"}

	blocked := &fakeReplier{}
	d.Handle(context.Background(), cfg, Interaction{
		Command: "help", Username: "member", ChannelID: "other-channel", ChannelName: "general",
	}, blocked)

	require.Len(t, blocked.replies, 1)
	assert.Equal(t, rejectChannelMsg, blocked.replies[0].content)
	assert.True(t, blocked.replies[0].ephemeral)
	// Unauthorized interactions never reach the log.
	assert.Empty(t, logsFor(t, store, cfg.ID))

	allowed := &fakeReplier{}
	d.Handle(context.Background(), cfg, Interaction{
		Command: "help", Username: "member", ChannelID: "allowed-channel", ChannelName: "support",
	}, allowed)
	assert.Len(t, logsFor(t, store, cfg.ID), 1)
}

func TestDispatch_AdminOnly(t *testing.T) {
	d, store, cfg := newDispatchFixture(t, ai.StaticGenerator{})
	cfg.AdminOnly = true

	blocked := &fakeReplier{}
	d.Handle(context.Background(), cfg, Interaction{
		Command: "help", Username: "member", ChannelID: "c1", ChannelName: "support",
	}, blocked)
	require.Len(t, blocked.replies, 1)
	assert.Equal(t, rejectAdminMsg, blocked.replies[0].content)
	assert.Empty(t, logsFor(t, store, cfg.ID))

	admin := &fakeReplier{}
	d.Handle(context.Background(), cfg, Interaction{
		Command: "help", Username: "admin", ChannelID: "c1", ChannelName: "support", IsAdmin: true,
	}, admin)
	assert.Len(t, logsFor(t, store, cfg.ID), 1)
}

func TestDispatch_RoleAllowList(t *testing.T) {
	d, store, cfg := newDispatchFixture(t, ai.StaticGenerator{})
	cfg.AllowedRoles = models.StringList{"helpers"}

	blocked := &fakeReplier{}
	d.Handle(context.Background(), cfg, Interaction{
		Command: "help", Username: "member", ChannelID: "c1", ChannelName: "support",
		RoleIDs: []string{"strangers"},
	}, blocked)
	require.Len(t, blocked.replies, 1)
	assert.Equal(t, rejectRoleMsg, blocked.replies[0].content)
	assert.Empty(t, logsFor(t, store, cfg.ID))

	// Administrators bypass the role gate.
	admin := &fakeReplier{}
	d.Handle(context.Background(), cfg, Interaction{
		Command: "help", Username: "admin", ChannelID: "c1", ChannelName: "support", IsAdmin: true,
	}, admin)
	require.Len(t, admin.replies, 1)
	assert.NotEqual(t, rejectRoleMsg, admin.replies[0].content)

	member := &fakeReplier{}
	d.Handle(context.Background(), cfg, Interaction{
		Command: "help", Username: "helper", ChannelID: "c1", ChannelName: "support",
		RoleIDs: []string{"helpers", "other"},
	}, member)
	assert.Len(t, logsFor(t, store, cfg.ID), 2)
}
