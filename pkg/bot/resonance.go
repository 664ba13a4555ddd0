package bot

import (
	"context"
	"fmt"

	"chorus/pkg/api"
	"chorus/pkg/gestalt"
	"chorus/pkg/utils"
)

// Resonance is the normalized representation of one inbound chat message
// plus its resolved context. Locale and privacy are resolved exactly once,
// during NewResonance, before the value reaches any listener or prompt.
// A resonance lives only for the duration of the reaction to its message.
type Resonance struct {
	// ID correlates every log line produced while reacting to this message.
	ID      string
	Content string
	Bot     *Bot
	Client  api.Client
	Author  api.User
	Origin  api.Origin
	Locale  string
	// Private is true for direct/whisper contexts per the client's rule.
	Private bool
	// Order is attached by the command listener once interpretation finds
	// a command invocation in the content.
	Order *Instruction
	// Raw keeps the original platform message object for client handlers.
	Raw any
}

// ResonanceBuilder supplies the client-specific resolution steps of the
// resonance build. One implementation per client type, selected through the
// builder registry instead of a central switch.
type ResonanceBuilder interface {
	// ResolveOrigin derives the message origin from the platform payload.
	ResolveOrigin(msg *api.ClientMessage) api.Origin
	// ResolvePrivacy applies the client's direct-message rule.
	ResolvePrivacy(msg *api.ClientMessage) bool
	// DoSend is the client-specific send primitive replies route through.
	DoSend(ctx context.Context, client api.Client, destination, content string) error
}

var resonanceRegistry = make(map[api.ClientType]ResonanceBuilder)

// RegisterResonanceBuilder binds a builder to a client type. Called from
// each client package's init().
func RegisterResonanceBuilder(t api.ClientType, b ResonanceBuilder) {
	resonanceRegistry[t] = b
}

func resonanceBuilderFor(t api.ClientType) (ResonanceBuilder, error) {
	b, ok := resonanceRegistry[t]
	if !ok {
		// Framework misconfiguration: a client is connected whose message
		// shape the pipeline cannot normalize. Not recoverable.
		return nil, fmt.Errorf("no resonance builder registered for client type %q", t)
	}
	return b, nil
}

// NewResonance builds the resonance for one inbound client message,
// resolving origin, locale and privacy in that order.
func (b *Bot) NewResonance(ctx context.Context, client api.Client, msg *api.ClientMessage) (*Resonance, error) {
	builder, err := resonanceBuilderFor(client.Type())
	if err != nil {
		return nil, err
	}

	r := &Resonance{
		ID:      utils.GenerateID(),
		Content: msg.Content,
		Bot:     b,
		Client:  client,
		Author:  msg.Author,
		Raw:     msg.Raw,
	}
	r.Origin = builder.ResolveOrigin(msg)
	r.Locale = b.resolveLocale(client.Type(), msg.Author.ID, r.Origin)
	r.Private = builder.ResolvePrivacy(msg)
	return r, nil
}

// resolveLocale checks persisted overrides narrowest first: user, then
// channel, then guild, falling back to the bot's default locale.
func (b *Bot) resolveLocale(t api.ClientType, userID string, origin api.Origin) string {
	base := fmt.Sprintf("/bots/%s/clients/%s", b.id, t)

	if l := gestalt.GetString(b.gestalt, fmt.Sprintf("%s/users/%s/locale", base, userID)); l != "" {
		return l
	}
	if l := gestalt.GetString(b.gestalt, fmt.Sprintf("%s/channels/%s/locale", base, origin.ChannelID)); l != "" {
		return l
	}
	if origin.GuildID != "" {
		if l := gestalt.GetString(b.gestalt, fmt.Sprintf("%s/guilds/%s/locale", base, origin.GuildID)); l != "" {
			return l
		}
	}
	if b.config.Locale != "" {
		return b.config.Locale
	}
	return "en"
}

// Reply sends personalized content back to the channel this resonance came
// from.
func (r *Resonance) Reply(ctx context.Context, content string) error {
	return r.Send(ctx, r.Origin.ChannelID, r.Bot.personalize(r.Locale, content))
}

// ReplyRaw sends content back to the origin channel without personalization.
func (r *Resonance) ReplyRaw(ctx context.Context, content string) error {
	return r.Send(ctx, r.Origin.ChannelID, content)
}

// Send delivers content to an arbitrary destination on this resonance's
// client, routing through the client-specific send primitive.
func (r *Resonance) Send(ctx context.Context, destination, content string) error {
	builder, err := resonanceBuilderFor(r.Client.Type())
	if err != nil {
		return err
	}
	if err := builder.DoSend(ctx, r.Client, destination, content); err != nil {
		return fmt.Errorf("send via %s failed: %w", r.Client.Type(), err)
	}
	r.Bot.broadcastOut(r.Client.Type(), content)
	return nil
}

// Prompt registers a time-boxed expectation of a follow-up message derived
// from this resonance and blocks until it resolves. The returned value is
// the response callback's result, or by default the raw response text.
func (r *Resonance) Prompt(ctx context.Context, info PromptInfo) (any, error) {
	p := r.Bot.newPrompt(r, info)
	return p.Await(ctx)
}
