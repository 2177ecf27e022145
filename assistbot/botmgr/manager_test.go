package botmgr

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goassist-bot/goassist/assistbot/database"
	"github.com/goassist-bot/goassist/assistbot/database/models"
)

type fakeConnection struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConnection) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeConnector struct {
	mu       sync.Mutex
	connects int
	failWith error
	conns    []*fakeConnection
}

func (c *fakeConnector) Connect(_ context.Context, _ *models.BotConfig) (Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.failWith != nil {
		return nil, c.failWith
	}
	conn := &fakeConnection{}
	c.conns = append(c.conns, conn)
	return conn, nil
}

func (c *fakeConnector) connectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func newManagerFixture(t *testing.T, connector Connector) (*Manager, database.Storage, *models.BotConfig) {
	t.Helper()
	store := database.NewMemoryStorage()
	ctx := context.Background()

	user := &models.User{DiscordID: "owner", Username: "owner"}
	require.NoError(t, store.CreateUser(ctx, user))

	config := &models.BotConfig{
		UserID:    user.ID,
		GuildID:   "123456789",
		GuildName: "Test Guild",
	}
	require.NoError(t, store.CreateBotConfig(ctx, config))

	return NewManager(store, connector), store, config
}

func TestManager_StartStop(t *testing.T) {
	connector := &fakeConnector{}
	manager, store, config := newManagerFixture(t, connector)
	ctx := context.Background()

	require.NoError(t, manager.Start(ctx, config.ID))
	assert.True(t, manager.Running(config.ID))

	persisted, err := store.GetBotConfig(ctx, config.ID)
	require.NoError(t, err)
	assert.True(t, persisted.IsActive)

	require.NoError(t, manager.Stop(ctx, config.ID))
	assert.False(t, manager.Running(config.ID))
	assert.True(t, connector.conns[0].closed)

	persisted, err = store.GetBotConfig(ctx, config.ID)
	require.NoError(t, err)
	assert.False(t, persisted.IsActive)
}

func TestManager_StartIdempotent(t *testing.T) {
	connector := &fakeConnector{}
	manager, _, config := newManagerFixture(t, connector)
	ctx := context.Background()

	require.NoError(t, manager.Start(ctx, config.ID))
	require.NoError(t, manager.Start(ctx, config.ID))
	assert.Equal(t, 1, connector.connectCount())
}

func TestManager_StopIdempotent(t *testing.T) {
	manager, _, config := newManagerFixture(t, &fakeConnector{})
	require.NoError(t, manager.Stop(context.Background(), config.ID))
	require.NoError(t, manager.Stop(context.Background(), "never-started"))
}

func TestManager_StartUnknownConfig(t *testing.T) {
	connector := &fakeConnector{}
	manager, _, _ := newManagerFixture(t, connector)

	err := manager.Start(context.Background(), "missing")
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.False(t, manager.Running("missing"))
	assert.Zero(t, connector.connectCount())
}

func TestManager_StartFailureLeavesStopped(t *testing.T) {
	connector := &fakeConnector{failWith: errors.New("gateway refused")}
	manager, store, config := newManagerFixture(t, connector)
	ctx := context.Background()

	err := manager.Start(ctx, config.ID)
	require.Error(t, err)
	assert.False(t, manager.Running(config.ID))

	persisted, err := store.GetBotConfig(ctx, config.ID)
	require.NoError(t, err)
	assert.False(t, persisted.IsActive)

	// A failed start must not block the retry.
	connector.mu.Lock()
	connector.failWith = nil
	connector.mu.Unlock()
	require.NoError(t, manager.Start(ctx, config.ID))
	assert.True(t, manager.Running(config.ID))
}

func TestManager_ConcurrentStartsSingleConnection(t *testing.T) {
	connector := &fakeConnector{}
	manager, _, config := newManagerFixture(t, connector)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = manager.Start(context.Background(), config.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, connector.connectCount())
	assert.True(t, manager.Running(config.ID))
}

// gatedConnector parks every Connect call until the test releases it, so
// interleavings around the connect window can be driven deterministically.
type gatedConnector struct {
	mu    sync.Mutex
	gates chan chan struct{}
	conns []*fakeConnection
}

func newGatedConnector() *gatedConnector {
	return &gatedConnector{gates: make(chan chan struct{})}
}

func (c *gatedConnector) Connect(context.Context, *models.BotConfig) (Connection, error) {
	gate := make(chan struct{})
	c.gates <- gate
	<-gate

	c.mu.Lock()
	defer c.mu.Unlock()
	conn := &fakeConnection{}
	c.conns = append(c.conns, conn)
	return conn, nil
}

func TestManager_RestartDuringStartClosesStaleConnection(t *testing.T) {
	connector := newGatedConnector()
	manager, _, config := newManagerFixture(t, connector)
	ctx := context.Background()

	// First start claims the slot and parks in Connect.
	firstDone := make(chan error, 1)
	go func() { firstDone <- manager.Start(ctx, config.ID) }()
	firstGate := <-connector.gates

	// Stop releases the claim while the first connect is still in flight.
	require.NoError(t, manager.Stop(ctx, config.ID))

	// Second start claims a fresh slot and parks too.
	secondDone := make(chan error, 1)
	go func() { secondDone <- manager.Start(ctx, config.ID) }()
	secondGate := <-connector.gates

	// The first connect finishes late; its claim is gone, so its
	// connection must be closed rather than installed into the new slot.
	close(firstGate)
	require.NoError(t, <-firstDone)

	close(secondGate)
	require.NoError(t, <-secondDone)
	assert.True(t, manager.Running(config.ID))

	require.NoError(t, manager.Stop(ctx, config.ID))
	assert.False(t, manager.Running(config.ID))

	connector.mu.Lock()
	defer connector.mu.Unlock()
	require.Len(t, connector.conns, 2)
	for i, conn := range connector.conns {
		assert.True(t, conn.closed, "connection %d left open", i)
	}
}

func TestManager_ReconcileStartup(t *testing.T) {
	manager, store, config := newManagerFixture(t, &fakeConnector{})
	ctx := context.Background()

	require.NoError(t, store.SetBotConfigActive(ctx, config.ID, true))
	require.NoError(t, manager.ReconcileStartup(ctx))

	persisted, err := store.GetBotConfig(ctx, config.ID)
	require.NoError(t, err)
	assert.False(t, persisted.IsActive)
}

func TestManager_StopAll(t *testing.T) {
	connector := &fakeConnector{}
	manager, store, config := newManagerFixture(t, connector)
	ctx := context.Background()

	second := &models.BotConfig{UserID: config.UserID, GuildID: "987", GuildName: "Other"}
	require.NoError(t, store.CreateBotConfig(ctx, second))

	require.NoError(t, manager.Start(ctx, config.ID))
	require.NoError(t, manager.Start(ctx, second.ID))

	manager.StopAll(ctx)
	assert.False(t, manager.Running(config.ID))
	assert.False(t, manager.Running(second.ID))
	for _, conn := range connector.conns {
		assert.True(t, conn.closed)
	}
}
