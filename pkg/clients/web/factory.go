package web

import (
	"context"
	"fmt"

	"chorus/pkg/api"
	"chorus/pkg/auth"
	"chorus/pkg/bot"
	"chorus/pkg/clients"
	"chorus/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// WebFactory builds websocket client adapters.
type WebFactory struct{}

// Create implements clients.Factory.
func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Client, error) {
	var cfg WebConfig
	cfg.Port = 8080

	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse web config: %w", err)
	}

	return New(cfg), nil
}

type webResonanceBuilder struct{}

func (webResonanceBuilder) ResolveOrigin(msg *api.ClientMessage) api.Origin {
	return api.Origin{ChannelID: msg.Origin.ChannelID}
}

// ResolvePrivacy is always true on this surface: every socket is a
// one-to-one conversation.
func (webResonanceBuilder) ResolvePrivacy(msg *api.ClientMessage) bool {
	return true
}

func (webResonanceBuilder) DoSend(ctx context.Context, client api.Client, destination, content string) error {
	return client.Send(ctx, destination, content)
}

func init() {
	clients.Register(api.ClientWeb, &WebFactory{})
	bot.RegisterResonanceBuilder(api.ClientWeb, webResonanceBuilder{})
	// One socket per user means a denial notice is already private.
	bot.RegisterAuthorizer(api.ClientWeb, auth.NewWhisperAuthorizer)
}
