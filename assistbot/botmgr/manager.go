// Package botmgr runs one gateway connection per started bot
// configuration and dispatches their slash commands.
package botmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goassist-bot/goassist/assistbot/database"
)

// Manager owns every live bot connection. Liveness is the presence of an
// entry in the table; the persisted isActive flag is a display cache
// written after the fact.
type Manager struct {
	mu        sync.RWMutex
	bots      map[string]*instance
	store     database.Storage
	connector Connector
}

// instance is one slot in the table. conn is nil while the bot is still
// starting; the slot itself is what blocks duplicate starts.
type instance struct {
	conn Connection
}

func NewManager(store database.Storage, connector Connector) *Manager {
	return &Manager{
		bots:      make(map[string]*instance),
		store:     store,
		connector: connector,
	}
}

// ReconcileStartup clears every persisted isActive flag. Connections never
// survive a restart, so the flags are stale by definition.
func (m *Manager) ReconcileStartup(ctx context.Context) error {
	if err := m.store.DeactivateAllBotConfigs(ctx); err != nil {
		return fmt.Errorf("failed to reconcile active flags: %w", err)
	}
	return nil
}

// Start brings the configuration online. Starting an already running (or
// currently starting) bot is a no-op success.
func (m *Manager) Start(ctx context.Context, configID string) error {
	m.mu.Lock()
	if _, ok := m.bots[configID]; ok {
		m.mu.Unlock()
		return nil
	}
	// Claim the slot before connecting so a concurrent Start cannot open
	// a second gateway session.
	claimed := &instance{}
	m.bots[configID] = claimed
	m.mu.Unlock()

	cfg, err := m.store.GetBotConfig(ctx, configID)
	if err != nil {
		m.remove(configID)
		return err
	}

	conn, err := m.connector.Connect(ctx, cfg)
	if err != nil {
		m.remove(configID)
		return fmt.Errorf("failed to start bot: %w", err)
	}

	m.mu.Lock()
	if m.bots[configID] != claimed {
		// Stopped while still starting, possibly already restarted with a
		// new claim. The connection must not outlive our claim, and the
		// current claim is not ours to touch.
		m.mu.Unlock()
		if err := conn.Close(ctx); err != nil {
			slog.Error("Failed to close orphaned connection",
				slog.String("type", "sys"),
				slog.String("bot_config_id", configID),
				slog.Any("error", err))
		}
		return nil
	}
	claimed.conn = conn
	m.mu.Unlock()

	// Only a live connection earns the flag.
	if err := m.store.SetBotConfigActive(ctx, configID, true); err != nil {
		slog.Error("Failed to persist active flag",
			slog.String("type", "db"),
			slog.String("bot_config_id", configID),
			slog.Any("error", err))
	}

	slog.Info("Bot started",
		slog.String("type", "sys"),
		slog.String("bot_config_id", configID))
	return nil
}

// Stop takes the configuration offline. Stopping a bot that is not running
// is a no-op success. The table entry goes first so a teardown failure can
// never leave a half-alive bot.
func (m *Manager) Stop(ctx context.Context, configID string) error {
	m.mu.Lock()
	inst, ok := m.bots[configID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.bots, configID)
	m.mu.Unlock()

	var closeErr error
	if inst.conn != nil {
		closeErr = inst.conn.Close(ctx)
	}

	if err := m.store.SetBotConfigActive(ctx, configID, false); err != nil {
		slog.Error("Failed to persist inactive flag",
			slog.String("type", "db"),
			slog.String("bot_config_id", configID),
			slog.Any("error", err))
	}

	slog.Info("Bot stopped",
		slog.String("type", "sys"),
		slog.String("bot_config_id", configID))
	return closeErr
}

// Running reports whether the configuration currently holds a table slot.
func (m *Manager) Running(configID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.bots[configID]
	return ok
}

// StopAll shuts down every running bot, used on process shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.bots))
	for id := range m.bots {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.Stop(ctx, id); err != nil {
			slog.Error("Failed to stop bot during shutdown",
				slog.String("type", "sys"),
				slog.String("bot_config_id", id),
				slog.Any("error", err))
		}
	}
}

func (m *Manager) remove(configID string) {
	m.mu.Lock()
	delete(m.bots, configID)
	m.mu.Unlock()
}
