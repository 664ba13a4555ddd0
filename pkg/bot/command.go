package bot

import (
	"context"
	"fmt"
	"strings"

	"chorus/pkg/api"
)

// ExecuteFunc is a command's platform-independent behavior.
type ExecuteFunc func(ctx context.Context, order *Instruction) error

// Handler is a command's optional client-specific behavior, fired via
// FireClientHandlers when a command needs to diverge per platform.
type Handler interface {
	Execute(ctx context.Context, order *Instruction, data map[string]any) error
}

// Command is a singleton definition: one instance per command key, shared
// across all invocations and all clients. Configuration fields are set once
// at load time; all per-invocation state lives on the Instruction.
type Command struct {
	// ID is the primary command key, matched case-insensitively.
	ID string
	// Aliases are alternative keys resolving to this same command.
	Aliases []string
	// Clients limits which client types may invoke the command.
	// Empty, or containing "*", means every client is permitted.
	Clients []string
	// Talent is the bundle this command arrived with, nil for built-ins.
	Talent *Talent
	// Options declares the flags the argument parser accepts. An
	// undeclared flag in an invocation is a hard configuration failure.
	Options []Option
	// Config carries the in-code default configuration, merged under any
	// persisted overrides at interpretation time.
	Config CommandConfig
	// Handlers holds client-specific behaviors keyed by client type.
	Handlers map[api.ClientType]Handler
	// Execute is the platform-independent behavior. When nil, invocation
	// falls through to the client handler for the originating platform.
	Execute ExecuteFunc
}

// Option declares one parseable command flag.
type Option struct {
	Key         string // long name, e.g. "color" for --color
	Shorthand   string // single-letter short name, e.g. "c" for -c
	Flag        bool   // boolean switch; otherwise the option takes a value
	Description string
}

// CommandConfig is the merged, persistable configuration of a command.
// The zero value means: active, no eminence requirement, no input
// requirement, allowed in private, no cooldowns, no lists.
type CommandConfig struct {
	Description string `json:"description,omitempty"`
	// Active administratively toggles the command; nil means active.
	// A deactivated command still runs for whitelisted channels/users.
	Active *bool `json:"active,omitempty"`
	// Eminence names the minimum level required to invoke the command.
	Eminence string `json:"eminence,omitempty"`
	// InputRequired denies invocations that carry no positional input.
	InputRequired bool `json:"input_required,omitempty"`
	// AllowPrivate gates invocation in direct-message contexts; nil allows.
	AllowPrivate *bool `json:"allow_private,omitempty"`
	Cooldown     CooldownConfig `json:"cooldown,omitempty"`
	Whitelist    AccessList     `json:"whitelist,omitempty"`
	Blacklist    AccessList     `json:"blacklist,omitempty"`
}

// CooldownConfig declares a command's cooldown durations in seconds.
// Zero means that cooldown is disabled.
type CooldownConfig struct {
	GlobalSec int `json:"global,omitempty"`
	UserSec   int `json:"user,omitempty"`
	// ExemptEminent skips cooldown enforcement for users holding any
	// eminence above none.
	ExemptEminent bool `json:"exempt_eminent,omitempty"`
}

// AccessList names users, channels and guilds for white/blacklisting.
type AccessList struct {
	Users    []string `json:"users,omitempty"`
	Channels []string `json:"channels,omitempty"`
	Guilds   []string `json:"guilds,omitempty"`
}

// ContainsUser reports whether the list names the given user id.
func (l AccessList) ContainsUser(id string) bool { return contains(l.Users, id) }

// ContainsOrigin reports whether the list names the origin's channel or guild.
func (l AccessList) ContainsOrigin(o api.Origin) bool {
	return contains(l.Channels, o.ChannelID) || (o.GuildID != "" && contains(l.Guilds, o.GuildID))
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// IsActive reports whether the command is administratively enabled.
func (c CommandConfig) IsActive() bool {
	return c.Active == nil || *c.Active
}

// AllowsPrivate reports whether the command may run in a direct context.
func (c CommandConfig) AllowsPrivate() bool {
	return c.AllowPrivate == nil || *c.AllowPrivate
}

// allowsClient checks one allow-list against a client type.
func allowsClient(list []string, t api.ClientType) bool {
	if len(list) == 0 {
		return true
	}
	for _, entry := range list {
		if entry == "*" || strings.EqualFold(entry, string(t)) {
			return true
		}
	}
	return false
}

// Allows reports whether this command may be invoked from the given client
// type. Both the command's own allow-list and its talent's must permit it.
func (c *Command) Allows(t api.ClientType) bool {
	if !allowsClient(c.Clients, t) {
		return false
	}
	if c.Talent != nil && !allowsClient(c.Talent.Clients, t) {
		return false
	}
	return true
}

// FireClientHandlers invokes the handler registered for the instruction's
// originating client type, if any. Missing handlers are absence, not errors.
func (c *Command) FireClientHandlers(ctx context.Context, order *Instruction, data map[string]any) error {
	if c.Handlers == nil {
		return nil
	}
	h, ok := c.Handlers[order.Resonance.Client.Type()]
	if !ok {
		return nil
	}
	return h.Execute(ctx, order, data)
}

func (c *Command) validate() error {
	if c.ID == "" {
		return fmt.Errorf("command with empty id")
	}
	return nil
}
