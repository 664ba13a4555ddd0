// Package llm abstracts chat-completion providers behind one small client
// interface with ordered fallback and transient-error retry.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the common surface of one provider/model pairing.
type Client interface {
	Provider() string
	// Chat runs one completion over the given conversation and returns
	// the assistant's text.
	Chat(ctx context.Context, messages []Message) (string, error)
	// IsTransientError reports whether an error is worth retrying
	// (rate limits, overload, network trouble).
	IsTransientError(err error) bool
}

// FallbackClient tries its clients in order, retrying each on transient
// errors before moving to the next.
type FallbackClient struct {
	Clients    []Client
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) Provider() string {
	return "fallback"
}

func (f *FallbackClient) Chat(ctx context.Context, messages []Message) (string, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.Warn("Provider failed, trying fallback", "provider", client.Provider(), "position", i+1)
		}

		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			reply, err := client.Chat(ctx, messages)
			if err == nil {
				return reply, nil
			}
			lastErr = err

			if client.IsTransientError(err) && retry < maxRetries {
				slog.Warn("Transient provider error, retrying", "provider", client.Provider(),
					"attempt", fmt.Sprintf("%d/%d", retry, maxRetries), "error", err)
				continue
			}
			slog.Error("Provider failed", "provider", client.Provider(), "error", err)
			break
		}
	}
	return "", fmt.Errorf("all fallback providers failed, last error: %w", lastErr)
}

// IsTransientError on the container means every child already failed, so
// the aggregate error is never worth an outer retry.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}
