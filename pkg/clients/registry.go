// Package clients holds the client adapter registry and the loader wiring
// configured adapters onto bots. Concrete adapters live in subpackages and
// register themselves during init().
package clients

import (
	"fmt"

	"chorus/pkg/api"
	"chorus/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// Factory creates a client connection from its raw per-bot configuration.
type Factory interface {
	Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Client, error)
}

var registry = make(map[api.ClientType]Factory)

// Register adds a client factory to the global registry. Called from each
// adapter package's init().
func Register(t api.ClientType, f Factory) {
	registry[t] = f
}

// Get retrieves a registered factory by client type.
func Get(t api.ClientType) (Factory, error) {
	f, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("unknown client type %q", t)
	}
	return f, nil
}

// Types lists every registered client type.
func Types() []api.ClientType {
	out := make([]api.ClientType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}
