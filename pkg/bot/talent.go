package bot

import (
	"context"

	"chorus/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// Talent is a pluggable bundle of commands and listeners grantable to a bot.
type Talent struct {
	// ID names the talent, matching its key in the bot's talent config.
	ID string
	// Clients limits which client types the whole bundle serves.
	// Empty, or containing "*", permits every client.
	Clients []string
	// Commands are registered on the granting bot's command registry.
	Commands []*Command
	// Listeners hear every resonance the granting bot hears.
	Listeners []Listener
	// Initialize, when set, runs once per bot during deploy.
	Initialize func(ctx context.Context, b *Bot) error
}

// TalentFactory creates a talent instance from its raw per-bot configuration.
// Each granted bot gets its own instance so talent state is never shared
// across bots.
type TalentFactory interface {
	Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (*Talent, error)
}

// talentRegistry maps talent names to their factory implementations,
// populated during package init() of each talent package.
var talentRegistry = make(map[string]TalentFactory)

// RegisterTalent adds a TalentFactory to the global registry.
func RegisterTalent(name string, factory TalentFactory) {
	talentRegistry[name] = factory
}

// GetTalentFactory retrieves a registered TalentFactory by name.
func GetTalentFactory(name string) (TalentFactory, bool) {
	f, ok := talentRegistry[name]
	return f, ok
}
