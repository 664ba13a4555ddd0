// Package bot implements the message-to-command pipeline: resonances
// (normalized inbound messages), instruction interpretation, per-invocation
// authorization, prompts and the bot aggregate that owns them all.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"chorus/pkg/api"
	"chorus/pkg/config"
	"chorus/pkg/cooldown"
	"chorus/pkg/gestalt"
	"chorus/pkg/monitor"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PersonalizeFunc decorates outbound reply text per locale before sending.
type PersonalizeFunc func(locale, content string) string

// Bot is the root aggregate: it owns clients, the command registry,
// listeners, active prompts, granted talents and the per-client joker
// identity. One instance per configured bot id.
type Bot struct {
	id      string
	config  config.BotConfig
	system  *config.SystemConfig
	gestalt api.ConfigStore

	cooldowns *cooldown.Manager
	monitor   monitor.Monitor

	clients   map[api.ClientType]api.Client
	commands  map[string]*Command
	talents   []*Talent
	listeners []Listener
	jokers    map[api.ClientType]api.User

	personalizeFn PersonalizeFunc

	pmu     sync.Mutex
	prompts map[*Prompt]struct{}

	mu       sync.Mutex
	summoned bool
}

// New creates a bot shell from its configuration. Clients and talents are
// attached afterwards by their loaders; Deploy brings it online.
func New(id string, cfg config.BotConfig, system *config.SystemConfig, store api.ConfigStore, cooldowns *cooldown.Manager) *Bot {
	b := &Bot{
		id:        id,
		config:    cfg,
		system:    system,
		gestalt:   store,
		cooldowns: cooldowns,
		clients:   make(map[api.ClientType]api.Client),
		commands:  make(map[string]*Command),
		jokers:    make(map[api.ClientType]api.User),
		prompts:   make(map[*Prompt]struct{}),
	}
	b.listeners = append(b.listeners, &CommandListener{})
	return b
}

func (b *Bot) ID() string                    { return b.id }
func (b *Bot) System() *config.SystemConfig  { return b.system }
func (b *Bot) Gestalt() api.ConfigStore      { return b.gestalt }
func (b *Bot) Cooldowns() *cooldown.Manager  { return b.cooldowns }
func (b *Bot) Config() config.BotConfig      { return b.config }

// ActiveConfig returns the bot's effective persisted settings map, with the
// in-code bot defaults synced underneath.
func (b *Bot) ActiveConfig() (map[string]any, error) {
	def := map[string]any{
		"command_prefix": b.config.CommandPrefix,
		"locale":         b.config.Locale,
	}
	return gestalt.Resolve(b.gestalt, fmt.Sprintf("/bots/%s/config", b.id), def)
}

// ActiveClientConfig returns the persisted settings map scoped to one client
// type. Absence yields an empty map.
func (b *Bot) ActiveClientConfig(t api.ClientType) (map[string]any, error) {
	path := fmt.Sprintf("/bots/%s/clients/%s/config", b.id, t)
	return gestalt.Resolve(b.gestalt, path, map[string]any{})
}

// SetMonitor wires the traffic monitor; done by the manager at build time.
func (b *Bot) SetMonitor(m monitor.Monitor) { b.monitor = m }

// SetPersonalize installs the outbound text decoration hook.
func (b *Bot) SetPersonalize(f PersonalizeFunc) { b.personalizeFn = f }

func (b *Bot) personalize(locale, content string) string {
	if b.personalizeFn == nil {
		return content
	}
	return b.personalizeFn(locale, content)
}

// AttachClient registers a built client connection on the bot.
func (b *Bot) AttachClient(c api.Client) {
	b.clients[c.Type()] = c
}

// Client returns the bot's connection for a client type.
func (b *Bot) Client(t api.ClientType) (api.Client, bool) {
	c, ok := b.clients[t]
	return c, ok
}

// Joker returns the resolved architect identity for a client type.
func (b *Bot) Joker(t api.ClientType) (api.User, bool) {
	u, ok := b.jokers[t]
	return u, ok
}

// AddListener registers an additional listener. Listeners are fixed once
// the bot deploys.
func (b *Bot) AddListener(l Listener) {
	b.listeners = append(b.listeners, l)
}

// RegisterCommand adds a command under its key and every alias,
// case-insensitively. A duplicate key is a load-time configuration problem:
// the first registration wins and the duplicate is logged and skipped.
func (b *Bot) RegisterCommand(cmd *Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	keys := append([]string{cmd.ID}, cmd.Aliases...)
	for _, k := range keys {
		k = strings.ToLower(k)
		if existing, ok := b.commands[k]; ok {
			slog.Warn("Duplicate command key skipped", "bot", b.id, "key", k, "kept", existing.ID)
			continue
		}
		b.commands[k] = cmd
	}
	return nil
}

// Grant attaches a talent bundle: its commands join the registry, its
// listeners join the fan-out. A talent failing to register is excluded,
// not fatal.
func (b *Bot) Grant(t *Talent) {
	for _, cmd := range t.Commands {
		cmd.Talent = t
		if err := b.RegisterCommand(cmd); err != nil {
			slog.Warn("Excluding command from talent", "bot", b.id, "talent", t.ID, "error", err)
		}
	}
	b.listeners = append(b.listeners, t.Listeners...)
	b.talents = append(b.talents, t)
	slog.Info("Talent granted", "bot", b.id, "talent", t.ID, "commands", len(t.Commands))
}

// Summoned reports whether the bot's clients are currently connected.
func (b *Bot) Summoned() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summoned
}

// Deploy connects and authenticates every client, resolves the joker
// identity per client, runs talent initialization and marks the bot
// summoned. Deploying an already-summoned bot warns and returns nil.
func (b *Bot) Deploy(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.summoned {
		slog.Warn("Bot already deployed, ignoring", "bot", b.id)
		return nil
	}
	if len(b.clients) == 0 {
		return fmt.Errorf("bot %q has no clients attached", b.id)
	}

	connected := make([]api.ClientType, 0, len(b.clients))
	for t, c := range b.clients {
		if err := c.Authenticate(ctx); err != nil {
			b.unwind(connected)
			return fmt.Errorf("client %s failed to authenticate: %w", t, err)
		}
		connected = append(connected, t)
		if err := c.Start(b); err != nil {
			b.unwind(connected)
			return fmt.Errorf("client %s failed to start: %w", t, err)
		}
		slog.Info("Client connected", "bot", b.id, "client", t)
	}

	b.resolveJokers(ctx)

	for _, talent := range b.talents {
		if talent.Initialize == nil {
			continue
		}
		if err := talent.Initialize(ctx, b); err != nil {
			slog.Warn("Talent initialization failed, excluding", "bot", b.id, "talent", talent.ID, "error", err)
		}
	}

	b.summoned = true
	slog.Info("Bot deployed", "bot", b.id, "clients", len(b.clients), "commands", len(b.commands))
	return nil
}

// unwind disconnects the clients connected so far when a deploy aborts
// partway, so a failed bot never lingers half-connected. Caller holds the
// lifecycle lock.
func (b *Bot) unwind(connected []api.ClientType) {
	for _, t := range connected {
		if err := b.clients[t].Disconnect(); err != nil {
			slog.Error("Error disconnecting client after failed deploy", "bot", b.id, "client", t, "error", err)
		}
	}
}

// resolveJokers fetches the architect identity configured per client.
// The joker implicitly holds deity eminence everywhere; caller holds the
// lifecycle lock.
func (b *Bot) resolveJokers(ctx context.Context) {
	for name, userID := range b.config.Jokers {
		t := api.ClientType(name)
		c, ok := b.clients[t]
		if !ok {
			continue
		}
		u, err := c.GetUser(ctx, userID)
		if err != nil {
			slog.Warn("Could not resolve joker", "bot", b.id, "client", t, "user", userID, "error", err)
			continue
		}
		b.jokers[t] = u
	}
}

// Shutdown disconnects every client and clears the summoned flag. Calling
// it on a bot that is not deployed warns and does nothing; repeat calls are
// safe, and a shut-down bot may be deployed again.
func (b *Bot) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.summoned {
		slog.Warn("Bot is not deployed, nothing to shut down", "bot", b.id)
		return
	}

	for _, p := range b.ActivePrompts() {
		p.Disable()
	}

	for t, c := range b.clients {
		if err := c.Disconnect(); err != nil {
			slog.Error("Error disconnecting client", "bot", b.id, "client", t, "error", err)
		}
	}
	b.summoned = false
	slog.Info("Bot shut down", "bot", b.id)
}

// OnMessage implements api.ClientContext: every message a client adapter
// hears enters the pipeline here. Each message is processed on its own
// goroutine so a slow reaction never blocks the adapter's receive loop.
func (b *Bot) OnMessage(t api.ClientType, msg *api.ClientMessage) {
	if !b.Summoned() {
		slog.Warn("Dropping message, bot is not deployed", "bot", b.id, "client", t)
		return
	}
	client, ok := b.clients[t]
	if !ok {
		slog.Warn("Message from unattached client type", "bot", b.id, "client", t)
		return
	}

	go func() {
		ctx := context.Background()

		res, err := b.NewResonance(ctx, client, msg)
		if err != nil {
			slog.Error("Failed to build resonance", "bot", b.id, "client", t, "error", err)
			return
		}

		b.broadcastIn(t, msg.Author.Username, msg.Content)
		slog.Debug("Resonance built", "bot", b.id, "client", t, "user", msg.Author.ID,
			"private", res.Private, "locale", res.Locale, "resonance", res.ID)

		b.Listen(ctx, res)
	}()
}

// Listen fans one resonance out to every listener and every active prompt
// concurrently, isolating failures per task, and returns once all of them
// have finished reacting.
func (b *Bot) Listen(ctx context.Context, res *Resonance) {
	var wg sync.WaitGroup

	for _, l := range b.listeners {
		wg.Add(1)
		go func(l Listener) {
			defer wg.Done()
			defer recoverReaction(b.id, res.ID)
			l.Listen(ctx, res)
		}(l)
	}

	for _, p := range b.ActivePrompts() {
		wg.Add(1)
		go func(p *Prompt) {
			defer wg.Done()
			defer recoverReaction(b.id, res.ID)
			p.Listen(res)
		}(p)
	}

	wg.Wait()
}

func recoverReaction(botID, resonanceID string) {
	if r := recover(); r != nil {
		slog.Error("Reaction panicked", "bot", botID, "resonance", resonanceID,
			"panic", r, "stack", string(debug.Stack()))
	}
}

// ActivePrompts snapshots the bot's active prompt set.
func (b *Bot) ActivePrompts() []*Prompt {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	out := make([]*Prompt, 0, len(b.prompts))
	for p := range b.prompts {
		out = append(out, p)
	}
	return out
}

func (b *Bot) addPrompt(p *Prompt) {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	b.prompts[p] = struct{}{}
}

func (b *Bot) removePrompt(p *Prompt) {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	delete(b.prompts, p)
}

func (b *Bot) broadcastIn(t api.ClientType, username, content string) {
	if b.monitor == nil {
		return
	}
	b.monitor.OnMessage(monitor.Message{
		Timestamp:  time.Now(),
		Direction:  monitor.DirectionIn,
		BotID:      b.id,
		ClientType: t,
		Username:   username,
		Content:    content,
	})
}

func (b *Bot) broadcastOut(t api.ClientType, content string) {
	if b.monitor == nil {
		return
	}
	b.monitor.OnMessage(monitor.Message{
		Timestamp:  time.Now(),
		Direction:  monitor.DirectionOut,
		BotID:      b.id,
		ClientType: t,
		Content:    content,
	})
}
