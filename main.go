package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chorus/pkg/bot"
	"chorus/pkg/clients"
	_ "chorus/pkg/clients/telegram" // register telegram adapter
	_ "chorus/pkg/clients/web"      // register web adapter
	"chorus/pkg/config"
	"chorus/pkg/cooldown"
	"chorus/pkg/gestalt"
	_ "chorus/pkg/llm/gemini"   // register gemini provider
	_ "chorus/pkg/llm/ollama"   // register ollama provider
	_ "chorus/pkg/llm/openailm" // register openai provider
	"chorus/pkg/monitor"
	_ "chorus/pkg/talents/ask" // register ask talent
)

func main() {
	cfg, system, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	monitor.Setup(system.LogLevel)
	monitor.PrintBanner()

	store, err := gestalt.NewFileStore(system.GestaltRoot)
	if err != nil {
		slog.Error("Failed to open gestalt store", "error", err)
		os.Exit(1)
	}
	cooldowns := cooldown.NewManager()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager, err := buildManager(ctx, cfg, system, store, cooldowns)
	if err != nil {
		slog.Error("Failed to build bot fleet", "error", err)
		os.Exit(1)
	}

	reload := config.Watch(ctx, "config.json", "system.json")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigChan:
			slog.Info("Received shutdown signal, stopping bots")
			manager.ShutdownAll()
			return

		case <-reload:
			slog.Info("Configuration changed, redeploying fleet")
			manager.ShutdownAll()

			newCfg, newSystem, err := config.Load()
			if err != nil {
				slog.Error("Reload failed, keeping previous configuration", "error", err)
			} else {
				cfg, system = newCfg, newSystem
				if store, err = gestalt.NewFileStore(system.GestaltRoot); err != nil {
					slog.Error("Failed to reopen gestalt store", "error", err)
					os.Exit(1)
				}
			}

			if manager, err = buildManager(ctx, cfg, system, store, cooldowns); err != nil {
				slog.Error("Redeploy failed", "error", err)
				os.Exit(1)
			}
		}
	}
}

// buildManager assembles every active bot: clients attached from the
// adapter registry, talents granted from the talent registry, and the
// fleet deployed through the manager builder.
func buildManager(ctx context.Context, cfg *config.Config, system *config.SystemConfig,
	store *gestalt.FileStore, cooldowns *cooldown.Manager) (*bot.Manager, error) {

	var bots []*bot.Bot
	for id, botCfg := range cfg.Bots {
		if !botCfg.Active {
			slog.Info("Skipping inactive bot", "bot", id)
			continue
		}

		b := bot.New(id, botCfg, system, store, cooldowns)
		clients.Load(b)

		for name, raw := range botCfg.Talents {
			factory, ok := bot.GetTalentFactory(name)
			if !ok {
				slog.Warn("Unknown talent, skipping", "bot", id, "talent", name)
				continue
			}
			talent, err := factory.Create(raw, system)
			if err != nil {
				slog.Warn("Failed to create talent, skipping", "bot", id, "talent", name, "error", err)
				continue
			}
			b.Grant(talent)
		}

		bots = append(bots, b)
	}

	return bot.NewManagerBuilder().
		WithMonitor(monitor.NewCLIMonitor()).
		WithBots(bots...).
		Build(ctx)
}
