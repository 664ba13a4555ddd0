// Package cooldown tracks active command cooldowns per bot.
package cooldown

import (
	"sync"
	"time"
)

// GlobalScope is the reserved scope id for bot-wide cooldowns. It must never
// collide with a real platform user id, which are non-zero strings on every
// supported client.
const GlobalScope = "0"

type key struct {
	bot      string
	category string
	subject  string
	scope    string
}

// Manager stores cooldown records keyed by (bot, category, subject, scope).
// Expiry is lazy: a record past its deadline is treated as absent on the
// next Check and collected at that point.
type Manager struct {
	mu      sync.Mutex
	records map[key]time.Time
	now     func() time.Time
}

// NewManager creates an empty cooldown manager.
func NewManager() *Manager {
	return &Manager{
		records: make(map[key]time.Time),
		now:     time.Now,
	}
}

// Check reports whether a non-expired cooldown exists for the exact tuple.
func (m *Manager) Check(botID, category, subject, scope string) bool {
	k := key{botID, category, subject, scope}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.records[k]
	if !ok {
		return false
	}
	if !m.now().Before(expiry) {
		delete(m.records, k)
		return false
	}
	return true
}

// Set creates or overwrites a cooldown expiring after d. A non-positive
// duration means the cooldown is disabled and nothing is recorded.
func (m *Manager) Set(botID, category, subject, scope string, d time.Duration) {
	if d <= 0 {
		return
	}
	k := key{botID, category, subject, scope}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[k] = m.now().Add(d)
}

// SetClock overrides the manager's time source. Test hook.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
