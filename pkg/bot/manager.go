package bot

import (
	"context"
	"log/slog"
	"sync"

	"chorus/pkg/monitor"
)

// Manager owns every configured bot and drives their shared lifecycle.
type Manager struct {
	mu      sync.RWMutex
	bots    map[string]*Bot
	monitor monitor.Monitor
}

func NewManager(mon monitor.Monitor) *Manager {
	return &Manager{
		bots:    make(map[string]*Bot),
		monitor: mon,
	}
}

// Register adds a bot to the fleet and wires the shared monitor into it.
func (m *Manager) Register(b *Bot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.SetMonitor(m.monitor)
	m.bots[b.ID()] = b
}

// Get returns a registered bot by id.
func (m *Manager) Get(id string) (*Bot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bots[id]
	return b, ok
}

// DeployAll brings every registered bot online. A bot that fails to deploy
// is logged and skipped so one bad token never takes the fleet down.
func (m *Manager) DeployAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, b := range m.bots {
		if err := b.Deploy(ctx); err != nil {
			slog.Error("Bot failed to deploy, skipping", "bot", id, "error", err)
			continue
		}
	}
}

// ShutdownAll disconnects every deployed bot.
func (m *Manager) ShutdownAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bots {
		b.Shutdown()
	}
}
