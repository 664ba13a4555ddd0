package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chorus/pkg/api"
	"chorus/pkg/gestalt"
)

// Interpret scans a resonance for a command invocation. It returns
// (nil, nil) when the message simply is not a command — absence, not an
// error. An error means the invocation was malformed at the configuration
// level (e.g. an undeclared option) and must be surfaced to the operator.
func (b *Bot) Interpret(ctx context.Context, res *Resonance) (*Instruction, error) {
	prefix := b.CommandPrefix(res)

	if !strings.HasPrefix(res.Content, prefix) {
		return nil, nil
	}
	trimmed := strings.TrimSpace(strings.TrimPrefix(res.Content, prefix))
	if trimmed == "" {
		// The bare prefix alone is not an invocation.
		return nil, nil
	}

	fields := strings.Fields(trimmed)
	key := strings.ToLower(fields[0])

	cmd := b.ResolveCommand(key)
	if cmd == nil {
		slog.Debug("No command found", "bot", b.id, "token", key, "resonance", res.ID)
		return nil, nil
	}
	if !cmd.Allows(res.Client.Type()) {
		slog.Debug("Command not permitted on client", "bot", b.id, "command", cmd.ID, "client", res.Client.Type())
		return nil, nil
	}

	args, err := parseArguments(cmd, fields[1:])
	if err != nil {
		return nil, err
	}

	cfg, err := b.activeCommandConfig(cmd, res.Client.Type())
	if err != nil {
		slog.Warn("Falling back to in-code command config", "bot", b.id, "command", cmd.ID, "error", err)
		cfg = cmd.Config
	}

	order := &Instruction{
		Command:   cmd,
		Resonance: res,
		Prefix:    prefix,
		Arguments: args,
		Config:    cfg,
		Content:   strings.TrimSpace(strings.TrimPrefix(trimmed, fields[0])),
	}
	res.Order = order
	return order, nil
}

// CommandPrefix resolves the effective prefix for a resonance's context.
// Priority: persisted channel override, then persisted client-level prefix,
// then the bot-wide default. First non-empty wins.
func (b *Bot) CommandPrefix(res *Resonance) string {
	base := fmt.Sprintf("/bots/%s/clients/%s", b.id, res.Client.Type())

	if p := gestalt.GetString(b.gestalt, fmt.Sprintf("%s/channels/%s/command_prefix", base, res.Origin.ChannelID)); p != "" {
		return p
	}
	if p := gestalt.GetString(b.gestalt, fmt.Sprintf("%s/command_prefix", base)); p != "" {
		return p
	}
	if b.config.CommandPrefix != "" {
		return b.config.CommandPrefix
	}
	return "!"
}

// ResolveCommand looks a token up against the bot's command registry by key
// or alias, case-insensitively. Nil means no such command.
func (b *Bot) ResolveCommand(token string) *Command {
	return b.commands[strings.ToLower(token)]
}

// activeCommandConfig produces the effective configuration for one command
// on one client: the in-code default synced against the persisted bot-wide
// config, merged under the persisted client-specific config.
func (b *Bot) activeCommandConfig(cmd *Command, t api.ClientType) (CommandConfig, error) {
	basePath := fmt.Sprintf("/bots/%s/commands/%s/config", b.id, cmd.ID)
	clientPath := fmt.Sprintf("/bots/%s/clients/%s/commands/%s/config", b.id, t, cmd.ID)

	baseCfg, err := b.gestalt.Sync(cmd.Config, basePath)
	if err != nil {
		return CommandConfig{}, err
	}
	clientCfg, err := b.gestalt.Get(clientPath)
	if err != nil {
		return CommandConfig{}, err
	}

	baseMap, _ := baseCfg.(map[string]any)
	clientMap, _ := clientCfg.(map[string]any)
	merged := gestalt.MergeMaps(baseMap, clientMap)

	return decodeCommandConfig(merged)
}

func decodeCommandConfig(m map[string]any) (CommandConfig, error) {
	var out CommandConfig
	raw, err := json.Marshal(m)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
