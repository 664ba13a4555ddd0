package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_ScopeIsolationAndExpiry(t *testing.T) {
	m := NewManager()
	current := time.Unix(1000, 0)
	m.SetClock(func() time.Time { return current })

	m.Set("alpha", "command", "roll", "userA", 5000*time.Millisecond)

	assert.True(t, m.Check("alpha", "command", "roll", "userA"))
	assert.False(t, m.Check("alpha", "command", "roll", "userB"), "cooldowns are scope isolated")
	assert.False(t, m.Check("alpha", "command", "roll", GlobalScope))
	assert.False(t, m.Check("beta", "command", "roll", "userA"), "cooldowns are bot isolated")

	current = current.Add(4999 * time.Millisecond)
	assert.True(t, m.Check("alpha", "command", "roll", "userA"))

	current = current.Add(time.Millisecond)
	assert.False(t, m.Check("alpha", "command", "roll", "userA"), "record at its deadline is absent")
	assert.False(t, m.Check("alpha", "command", "roll", "userB"))
}

func TestManager_ZeroDurationDisabled(t *testing.T) {
	m := NewManager()

	m.Set("alpha", "command", "ping", GlobalScope, 0)
	assert.False(t, m.Check("alpha", "command", "ping", GlobalScope))

	m.Set("alpha", "command", "ping", GlobalScope, -time.Second)
	assert.False(t, m.Check("alpha", "command", "ping", GlobalScope))
}

func TestManager_SetOverwrites(t *testing.T) {
	m := NewManager()
	current := time.Unix(1000, 0)
	m.SetClock(func() time.Time { return current })

	m.Set("alpha", "command", "roll", GlobalScope, time.Second)
	current = current.Add(900 * time.Millisecond)
	m.Set("alpha", "command", "roll", GlobalScope, time.Second)

	current = current.Add(500 * time.Millisecond)
	assert.True(t, m.Check("alpha", "command", "roll", GlobalScope), "re-creation overwrites the old expiry")
}
