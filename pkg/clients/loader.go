package clients

import (
	"log/slog"

	"chorus/pkg/api"
	"chorus/pkg/bot"
)

// Load builds and attaches every configured client of a bot. An unknown
// client type or a failed build is logged and skipped so one bad entry
// never blocks the rest of the bot.
func Load(b *bot.Bot) {
	cfg := b.Config()
	for name, raw := range cfg.Clients {
		t := api.ClientType(name)

		factory, err := Get(t)
		if err != nil {
			slog.Warn("Skipping unknown client type", "bot", b.ID(), "client", name)
			continue
		}
		client, err := factory.Create(raw, b.System())
		if err != nil {
			slog.Error("Failed to build client", "bot", b.ID(), "client", name, "error", err)
			continue
		}
		b.AttachClient(client)
		slog.Info("Client attached", "bot", b.ID(), "client", name)
	}
}
