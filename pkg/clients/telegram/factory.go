package telegram

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

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TelegramFactory builds Telegram client adapters.
type TelegramFactory struct{}

// Create implements clients.Factory.
func (f *TelegramFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Client, error) {
	var tgCfg TelegramConfig
	if err := json.Unmarshal(rawConfig, &tgCfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}

	if tgCfg.Token == "" {
		return nil, fmt.Errorf("missing telegram token")
	}

	return New(tgCfg, system), nil
}

// telegramResonanceBuilder supplies the platform-specific resolution steps
// of the resonance build. Telegram has no guild concept, so the origin is
// the chat alone.
type telegramResonanceBuilder struct{}

func (telegramResonanceBuilder) ResolveOrigin(msg *api.ClientMessage) api.Origin {
	return api.Origin{ChannelID: msg.Origin.ChannelID}
}

func (telegramResonanceBuilder) ResolvePrivacy(msg *api.ClientMessage) bool {
	return msg.Direct
}

func (telegramResonanceBuilder) DoSend(ctx context.Context, client api.Client, destination, content string) error {
	return client.Send(ctx, destination, content)
}

func init() {
	clients.Register(api.ClientTelegram, &TelegramFactory{})
	bot.RegisterResonanceBuilder(api.ClientTelegram, telegramResonanceBuilder{})
	// Telegram chats tolerate bot replies inline, so denial notices go to
	// the originating chat.
	bot.RegisterAuthorizer(api.ClientTelegram, auth.NewChatAuthorizer)
}
