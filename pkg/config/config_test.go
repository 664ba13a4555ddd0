package config

import (
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("no bots", func(t *testing.T) {
		cfg := &Config{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("active bot without clients", func(t *testing.T) {
		cfg := &Config{Bots: map[string]BotConfig{
			"alpha": {Active: true},
		}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("only inactive bots", func(t *testing.T) {
		cfg := &Config{Bots: map[string]BotConfig{
			"alpha": {Active: false},
		}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		cfg := &Config{Bots: map[string]BotConfig{
			"alpha": {Active: true, Clients: map[string]jsoniter.RawMessage{"web": []byte(`{"port":9453}`)}},
		}}
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadSystemConfig_Fallbacks(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg := LoadSystemConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Equal(t, 10, cfg.PromptTimeoutSec)
		assert.Equal(t, 2, cfg.PromptMaxResets)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("partial file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"prompt_timeout_sec": 30}`), 0644))

		cfg := LoadSystemConfig(path)
		assert.Equal(t, 30, cfg.PromptTimeoutSec)
		assert.Equal(t, 4000, cfg.TelegramMessageLimit, "untouched fields keep defaults")
	})

	t.Run("corrupt file uses defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

		cfg := LoadSystemConfig(path)
		assert.Equal(t, 10, cfg.PromptTimeoutSec)
	})
}
