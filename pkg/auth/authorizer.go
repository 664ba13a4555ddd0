// Package auth implements the per-invocation command authorization gate:
// an ordered chain of cooldown, input, activation, blacklist, eminence and
// privacy checks evaluated against one instruction.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"chorus/pkg/bot"
	"chorus/pkg/cooldown"
	"chorus/pkg/gestalt"
)

// Notifier delivers a user-facing denial notice for one instruction.
// Chat-room clients reply in the originating channel; noise-sensitive
// clients whisper the author instead.
type Notifier func(ctx context.Context, order *bot.Instruction, notice string) error

// ChatNotifier replies in the channel the command was invoked from.
func ChatNotifier(ctx context.Context, order *bot.Instruction, notice string) error {
	return order.Resonance.Reply(ctx, notice)
}

// WhisperNotifier sends the notice privately to the invoking user.
func WhisperNotifier(ctx context.Context, order *bot.Instruction, notice string) error {
	return order.Resonance.Send(ctx, order.Resonance.Author.ID, notice)
}

type state int

const (
	stateConstructed state = iota
	stateBuilt
	stateDecided
)

// CommandAuthorizer gates one command invocation. One instance per
// instruction: Build loads the persisted authorization state, Warrant
// renders a terminal decision, and the instance is discarded.
type CommandAuthorizer struct {
	order  *bot.Instruction
	notify Notifier
	state  state

	// Trace, when set, receives the name of each check as it is evaluated.
	Trace func(check string)

	botEminences   map[string]string
	guildEminences map[string]string
}

// New creates an authorizer for one instruction with the given denial
// notifier.
func New(order *bot.Instruction, notify Notifier) *CommandAuthorizer {
	return &CommandAuthorizer{order: order, notify: notify}
}

// NewChatAuthorizer is the factory for clients where denial notices belong
// in the originating channel.
func NewChatAuthorizer(order *bot.Instruction) bot.Authorizer {
	return New(order, ChatNotifier)
}

// NewWhisperAuthorizer is the factory for clients where channel noise
// matters and notices are whispered to the author.
func NewWhisperAuthorizer(order *bot.Instruction) bot.Authorizer {
	return New(order, WhisperNotifier)
}

// Build loads the persisted eminence maps for the instruction's scope: the
// bot-wide per-client map and the invoking guild's map.
func (a *CommandAuthorizer) Build(ctx context.Context) error {
	if a.state != stateConstructed {
		return fmt.Errorf("authorizer already built")
	}

	res := a.order.Resonance
	b := res.Bot
	base := fmt.Sprintf("/bots/%s/clients/%s", b.ID(), res.Client.Type())

	var err error
	a.botEminences, err = gestalt.Resolve(b.Gestalt(), base+"/eminences", map[string]string{})
	if err != nil {
		return fmt.Errorf("loading eminence map: %w", err)
	}

	if res.Origin.GuildID != "" {
		path := fmt.Sprintf("%s/guilds/%s/eminences", base, res.Origin.GuildID)
		a.guildEminences, err = gestalt.Resolve(b.Gestalt(), path, map[string]string{})
		if err != nil {
			return fmt.Errorf("loading guild eminence map: %w", err)
		}
	}

	a.state = stateBuilt
	return nil
}

type check struct {
	name string
	run  func(ctx context.Context) (bool, error)
}

// Warrant evaluates the check chain in order, short-circuiting on the first
// denial. Ordinary denial is (false, nil); errors are reserved for
// malformed configuration. Terminal either way: a decided authorizer never
// re-evaluates.
func (a *CommandAuthorizer) Warrant(ctx context.Context) (bool, error) {
	if a.state != stateBuilt {
		return false, fmt.Errorf("authorizer not built or already decided")
	}
	a.state = stateDecided

	checks := []check{
		{"cooldown", a.checkCooldown},
		{"input", a.checkInput},
		{"activation", a.checkActivation},
		{"user_blacklist", a.checkUserBlacklist},
		{"eminence", a.checkEminence},
		{"private", a.checkPrivate},
		{"origin_blacklist", a.checkOriginBlacklist},
	}

	for _, c := range checks {
		if a.Trace != nil {
			a.Trace(c.name)
		}
		granted, err := c.run(ctx)
		if err != nil {
			return false, fmt.Errorf("check %s: %w", c.name, err)
		}
		if !granted {
			slog.Debug("Authorization denied", "bot", a.order.Resonance.Bot.ID(),
				"command", a.order.Command.ID, "user", a.order.Resonance.Author.ID, "check", c.name)
			return false, nil
		}
	}
	return true, nil
}

// checkCooldown denies while either the global or the per-author cooldown
// for this command is still running, with a user-facing notice. Users
// holding any eminence bypass it when the command opts in.
func (a *CommandAuthorizer) checkCooldown(ctx context.Context) (bool, error) {
	cfg := a.order.Config.Cooldown
	res := a.order.Resonance
	b := res.Bot

	if cfg.ExemptEminent {
		eminence, err := a.resolveEminence()
		if err != nil {
			return false, err
		}
		if eminence > bot.EminenceNone {
			return true, nil
		}
	}

	onGlobal := b.Cooldowns().Check(b.ID(), "command", a.order.Command.ID, cooldown.GlobalScope)
	onUser := b.Cooldowns().Check(b.ID(), "command", a.order.Command.ID, res.Author.ID)
	if !onGlobal && !onUser {
		return true, nil
	}

	notice := fmt.Sprintf("%s%s is on cooldown.", a.order.Prefix, a.order.Command.ID)
	if err := a.notify(ctx, a.order, notice); err != nil {
		slog.Warn("Failed to deliver cooldown notice", "bot", b.ID(), "command", a.order.Command.ID, "error", err)
	}
	return false, nil
}

// checkInput denies silently when the command requires input and the
// invocation carried none.
func (a *CommandAuthorizer) checkInput(ctx context.Context) (bool, error) {
	if !a.order.Config.InputRequired {
		return true, nil
	}
	return a.order.Arguments.HasInput(), nil
}

// checkActivation lets a deactivated command through only for whitelisted
// users or origins.
func (a *CommandAuthorizer) checkActivation(ctx context.Context) (bool, error) {
	cfg := a.order.Config
	if cfg.IsActive() {
		return true, nil
	}
	res := a.order.Resonance
	return cfg.Whitelist.ContainsUser(res.Author.ID) || cfg.Whitelist.ContainsOrigin(res.Origin), nil
}

func (a *CommandAuthorizer) checkUserBlacklist(ctx context.Context) (bool, error) {
	return !a.order.Config.Blacklist.ContainsUser(a.order.Resonance.Author.ID), nil
}

// checkEminence compares the author's resolved eminence against the
// command's requirement. Higher levels satisfy every lower requirement.
func (a *CommandAuthorizer) checkEminence(ctx context.Context) (bool, error) {
	required, err := bot.ParseEminence(a.order.Config.Eminence)
	if err != nil {
		return false, err
	}
	if required == bot.EminenceNone {
		return true, nil
	}
	held, err := a.resolveEminence()
	if err != nil {
		return false, err
	}
	return held >= required, nil
}

// resolveEminence determines the author's level: the joker holds deity
// implicitly, otherwise the bot-wide map is consulted before the
// guild-scoped map, and absence means none.
func (a *CommandAuthorizer) resolveEminence() (bot.Eminence, error) {
	res := a.order.Resonance

	if joker, ok := res.Bot.Joker(res.Client.Type()); ok && joker.ID == res.Author.ID {
		return bot.EminenceDeity, nil
	}

	if name, ok := a.botEminences[res.Author.ID]; ok {
		return bot.ParseEminence(name)
	}
	if name, ok := a.guildEminences[res.Author.ID]; ok {
		return bot.ParseEminence(name)
	}
	return bot.EminenceNone, nil
}

func (a *CommandAuthorizer) checkPrivate(ctx context.Context) (bool, error) {
	if !a.order.Resonance.Private {
		return true, nil
	}
	return a.order.Config.AllowsPrivate(), nil
}

func (a *CommandAuthorizer) checkOriginBlacklist(ctx context.Context) (bool, error) {
	return !a.order.Config.Blacklist.ContainsOrigin(a.order.Resonance.Origin), nil
}
