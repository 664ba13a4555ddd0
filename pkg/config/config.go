package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// Config defines the global application configuration structure.
// It maps directly to config.json and declares which bots exist, which
// clients each connects to, and which talents each is granted.
type Config struct {
	// Bots maps bot identifiers to their configuration blocks.
	Bots map[string]BotConfig `json:"bots"`
}

// BotConfig is the per-bot block inside config.json.
type BotConfig struct {
	// Active gates whether the bot is built and deployed at all.
	Active bool `json:"active"`
	// CommandPrefix is the bot-wide default prefix, used when neither a
	// channel override nor a client-level prefix is persisted. Empty means "!".
	CommandPrefix string `json:"command_prefix"`
	// Locale is the bot's default locale, the last fallback of locale
	// resolution. Empty means "en".
	Locale string `json:"locale"`
	// Clients maps client type names (e.g. "telegram", "web") to their
	// platform-specific configuration payloads in raw JSON format.
	Clients map[string]jsoniter.RawMessage `json:"clients"`
	// Talents maps granted talent names to their raw configuration.
	Talents map[string]jsoniter.RawMessage `json:"talents"`
	// Jokers maps client type names to the platform user id of the bot's
	// architect on that client. Resolved to a full user at deploy time.
	Jokers map[string]string `json:"jokers"`
}

// Validate ensures the configuration contains at least one usable bot.
// Running with no bots at all is a fatal bootstrap error, not a warning.
func (c *Config) Validate() error {
	if len(c.Bots) == 0 {
		return fmt.Errorf("no bots configured")
	}
	active := 0
	for id, bc := range c.Bots {
		if !bc.Active {
			continue
		}
		active++
		if len(bc.Clients) == 0 {
			return fmt.Errorf("bot %q is active but has no clients configured", id)
		}
	}
	if active == 0 {
		return fmt.Errorf("no active bots configured")
	}
	return nil
}

// SystemConfig defines engine-level technical parameters, stored in
// system.json and controlling timing, buffering and logging behavior.
type SystemConfig struct {
	// GestaltRoot is the directory persisted configuration lives under.
	GestaltRoot string `json:"gestalt_root"`
	// PromptTimeoutSec is the default wall-clock wait for a prompt response.
	PromptTimeoutSec int `json:"prompt_timeout_sec"`
	// PromptMaxResets bounds how many times a prompt may be re-armed after
	// an invalid response before it fails terminally.
	PromptMaxResets int `json:"prompt_max_resets"`
	// TelegramMessageLimit is the maximum character count for a single
	// Telegram message. Longer replies are split into chunks.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// TelegramPollTimeoutSec is the long-poll timeout for Telegram updates.
	TelegramPollTimeoutSec int `json:"telegram_poll_timeout_sec"`
	// LLMTimeoutMs is the hard cutoff for one LLM request made by a talent.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// MaxRetries is the number of attempts against a single LLM provider
	// before falling through to the next one.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the wait between consecutive LLM retry attempts.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
}

// DefaultSystemConfig returns a SystemConfig initialized with hardcoded safe
// defaults, used as the fallback when system.json is missing or corrupt.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		GestaltRoot:            "data/gestalt",
		PromptTimeoutSec:       10,
		PromptMaxResets:        2,
		TelegramMessageLimit:   4000,
		TelegramPollTimeoutSec: 60,
		LLMTimeoutMs:           60000,
		MaxRetries:             3,
		RetryDelayMs:           500,
		LogLevel:               "info",
	}
}

// Load reads and parses the JSON configuration files from the current
// working directory: config.json is mandatory, system.json falls back to
// defaults when missing.
func Load() (*Config, *SystemConfig, error) {
	appPath := "config.json"
	if _, err := os.Stat(appPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file %q not found. please create one", appPath)
	}

	appFile, err := os.ReadFile(appPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(appFile, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, LoadSystemConfig("system.json"), nil
}

// LoadSystemConfig attempts to load system settings, returning defaults on
// any failure.
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(file, cfg); err != nil {
		return cfg
	}
	return cfg
}
