package bot

import (
	"context"
	"log/slog"
)

// Listener reacts to every resonance the owning bot hears. All listeners
// for one resonance are started together and run concurrently; a listener
// failing or panicking never affects its siblings.
type Listener interface {
	Listen(ctx context.Context, res *Resonance)
}

// CommandListener is the built-in listener driving the command pipeline:
// interpret, authorize, execute, then record cooldowns.
type CommandListener struct{}

func (l *CommandListener) Listen(ctx context.Context, res *Resonance) {
	order, err := res.Bot.Interpret(ctx, res)
	if err != nil {
		slog.Error("Command interpretation failed", "bot", res.Bot.ID(), "resonance", res.ID, "error", err)
		return
	}
	if order == nil {
		return
	}

	auth, err := authorizerFor(order)
	if err != nil {
		slog.Error("Cannot authorize command", "bot", res.Bot.ID(), "command", order.Command.ID, "error", err)
		return
	}
	if err := auth.Build(ctx); err != nil {
		slog.Error("Authorizer build failed", "bot", res.Bot.ID(), "command", order.Command.ID, "error", err)
		return
	}
	granted, err := auth.Warrant(ctx)
	if err != nil {
		slog.Error("Authorization failed", "bot", res.Bot.ID(), "command", order.Command.ID, "error", err)
		return
	}
	if !granted {
		slog.Debug("Command denied", "bot", res.Bot.ID(), "command", order.Command.ID,
			"user", res.Author.ID, "resonance", res.ID)
		return
	}

	if err := order.Execute(ctx); err != nil {
		slog.Error("Command execution failed", "bot", res.Bot.ID(), "command", order.Command.ID, "error", err)
		return
	}

	// Cooldowns start only after the command actually ran.
	order.SetCooldowns()
}
