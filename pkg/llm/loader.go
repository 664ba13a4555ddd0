package llm

import (
	"fmt"
	"log/slog"
	"time"

	"chorus/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewFromConfig builds the effective LLM client from raw configuration:
// every model of every configured group becomes one atomic client, and
// more than one is wrapped in an ordered fallback chain.
func NewFromConfig(rawLLM jsoniter.RawMessage, system *config.SystemConfig) (Client, error) {
	if rawLLM == nil {
		return nil, fmt.Errorf("missing 'llm' config")
	}

	var groups []ProviderGroupConfig
	if err := json.Unmarshal(rawLLM, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse 'llm' config: %w", err)
	}

	var allClients []Client
	for _, group := range groups {
		factory, ok := GetProviderFactory(group.Type)
		if !ok {
			slog.Warn("Unknown LLM provider type, skipping", "type", group.Type)
			continue
		}

		clients, err := factory.Create(group, system)
		if err != nil {
			slog.Warn("Failed to create provider clients, skipping group", "type", group.Type, "error", err)
			continue
		}
		allClients = append(allClients, clients...)
		slog.Info("LLM group loaded", "type", group.Type, "models", len(group.Models))
	}

	if len(allClients) == 0 {
		return nil, fmt.Errorf("no LLM clients could be initialized")
	}
	if len(allClients) == 1 {
		return allClients[0], nil
	}

	return &FallbackClient{
		Clients:    allClients,
		MaxRetries: system.MaxRetries,
		RetryDelay: time.Duration(system.RetryDelayMs) * time.Millisecond,
	}, nil
}
