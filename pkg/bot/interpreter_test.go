package bot

import (
	"context"
	"testing"

	"chorus/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interpretText(t *testing.T, b *Bot, client *fakeClient, content string) (*Instruction, error) {
	t.Helper()
	res, err := b.NewResonance(context.Background(), client, fakeMessage("u1", "c1", content))
	require.NoError(t, err)
	return b.Interpret(context.Background(), res)
}

func TestInterpretPrefixPriority(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{CommandPrefix: "."})
	require.NoError(t, b.RegisterCommand(&Command{ID: "ping"}))

	t.Run("bot default prefix", func(t *testing.T) {
		order, err := interpretText(t, b, client, ".ping")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, ".", order.Prefix)
	})

	t.Run("client-level prefix overrides bot default", func(t *testing.T) {
		require.NoError(t, b.Gestalt().Post("/bots/alpha/clients/fake/command_prefix", "!"))

		order, err := interpretText(t, b, client, "!ping")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, "!", order.Prefix)

		order, err = interpretText(t, b, client, ".ping")
		require.NoError(t, err)
		assert.Nil(t, order)
	})

	t.Run("channel override beats client-level prefix", func(t *testing.T) {
		require.NoError(t, b.Gestalt().Post("/bots/alpha/clients/fake/channels/c1/command_prefix", "$"))

		order, err := interpretText(t, b, client, "$ping")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, "$", order.Prefix)

		order, err = interpretText(t, b, client, "!ping")
		require.NoError(t, err)
		assert.Nil(t, order)
	})
}

func TestInterpretFallbackPrefix(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})
	require.NoError(t, b.RegisterCommand(&Command{ID: "ping"}))

	order, err := interpretText(t, b, client, "!ping")
	require.NoError(t, err)
	assert.NotNil(t, order)
}

func TestInterpretNonCommands(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{CommandPrefix: "!"})
	require.NoError(t, b.RegisterCommand(&Command{ID: "ping"}))

	for name, content := range map[string]string{
		"plain chatter":   "hello there",
		"bare prefix":     "!",
		"prefix + spaces": "!   ",
		"unknown command": "!frobnicate",
	} {
		t.Run(name, func(t *testing.T) {
			order, err := interpretText(t, b, client, content)
			require.NoError(t, err)
			assert.Nil(t, order)
		})
	}
}

func TestInterpretArguments(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{CommandPrefix: "!"})
	require.NoError(t, b.RegisterCommand(&Command{
		ID: "greet",
		Options: []Option{
			{Key: "color", Shorthand: "c"},
			{Key: "loud", Shorthand: "l", Flag: true},
		},
	}))

	t.Run("positionals and trailing content", func(t *testing.T) {
		order, err := interpretText(t, b, client, "!greet hello world")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, []string{"hello", "world"}, order.Arguments.Positional)
		assert.Equal(t, "hello world", order.Content)
	})

	t.Run("declared options", func(t *testing.T) {
		order, err := interpretText(t, b, client, "!greet --color red -l bob")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, "red", order.Arguments.Flags["color"])
		assert.True(t, order.Arguments.Switches["loud"])
		assert.Equal(t, []string{"bob"}, order.Arguments.Positional)
		assert.True(t, order.Arguments.HasInput())
	})

	t.Run("undeclared option is a hard failure", func(t *testing.T) {
		_, err := interpretText(t, b, client, "!greet --volume 11")
		assert.Error(t, err)
	})
}

func TestInterpretAliasesAndCase(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{CommandPrefix: "!"})
	cmd := &Command{ID: "roll", Aliases: []string{"dice", "r"}}
	require.NoError(t, b.RegisterCommand(cmd))

	for _, invocation := range []string{"!roll", "!ROLL", "!dice", "!R"} {
		order, err := interpretText(t, b, client, invocation)
		require.NoError(t, err)
		require.NotNil(t, order, invocation)
		assert.Same(t, cmd, order.Command, invocation)
	}
}

func TestInterpretClientAllowList(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{CommandPrefix: "!"})
	require.NoError(t, b.RegisterCommand(&Command{ID: "tgonly", Clients: []string{"telegram"}}))
	require.NoError(t, b.RegisterCommand(&Command{ID: "anywhere", Clients: []string{"*"}}))

	order, err := interpretText(t, b, client, "!tgonly")
	require.NoError(t, err)
	assert.Nil(t, order)

	order, err = interpretText(t, b, client, "!anywhere")
	require.NoError(t, err)
	assert.NotNil(t, order)
}

func TestInterpretPersistedCommandConfig(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{CommandPrefix: "!"})
	require.NoError(t, b.RegisterCommand(&Command{
		ID:     "slow",
		Config: CommandConfig{Cooldown: CooldownConfig{UserSec: 5}},
	}))

	t.Run("in-code default synced on first interpretation", func(t *testing.T) {
		order, err := interpretText(t, b, client, "!slow")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, 5, order.Config.Cooldown.UserSec)
	})

	t.Run("persisted bot-wide override wins", func(t *testing.T) {
		_, err := b.Gestalt().Update("/bots/alpha/commands/slow/config", map[string]any{
			"cooldown": map[string]any{"user": 30},
		})
		require.NoError(t, err)

		order, err := interpretText(t, b, client, "!slow")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, 30, order.Config.Cooldown.UserSec)
	})

	t.Run("client-specific config merges over bot-wide", func(t *testing.T) {
		_, err := b.Gestalt().Update("/bots/alpha/clients/fake/commands/slow/config", map[string]any{
			"cooldown": map[string]any{"user": 60},
			"eminence": "operator",
		})
		require.NoError(t, err)

		order, err := interpretText(t, b, client, "!slow")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, 60, order.Config.Cooldown.UserSec)
		assert.Equal(t, "operator", order.Config.Eminence)
	})
}
