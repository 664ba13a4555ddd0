package gemini

import (
	"fmt"
	"log/slog"

	"chorus/pkg/config"
	"chorus/pkg/llm"
)

// GeminiFactory handles creation of Gemini clients. Multiple API keys fan
// out across the configured models for simple quota spreading.
type GeminiFactory struct{}

// Create implements ProviderFactory.
func (f *GeminiFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.Client, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("gemini requires at least one api key")
	}

	var clients []llm.Client
	for i, model := range cfg.Models {
		apiKey := cfg.APIKeys[i%len(cfg.APIKeys)]
		client, err := NewGeminiClient(apiKey, model)
		if err != nil {
			slog.Error("Failed to create Gemini client", "model", model, "error", err)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("gemini", &GeminiFactory{})
}
