// Package ask provides the built-in LLM question talent: one command that
// forwards a question to the configured model chain and replies with the
// answer, prompting for the question when the invocation carried none.
package ask

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chorus/pkg/bot"
	"chorus/pkg/config"
	"chorus/pkg/llm"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// askConfig is the talent's per-bot configuration.
type askConfig struct {
	LLM          jsoniter.RawMessage `json:"llm"`
	SystemPrompt string              `json:"system_prompt,omitempty"`
}

// AskFactory builds one talent instance per granting bot.
type AskFactory struct{}

// Create implements bot.TalentFactory.
func (f *AskFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (*bot.Talent, error) {
	var cfg askConfig
	if rawConfig != nil {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse ask config: %w", err)
		}
	}

	client, err := llm.NewFromConfig(cfg.LLM, system)
	if err != nil {
		return nil, fmt.Errorf("ask talent: %w", err)
	}

	t := &askTalent{
		client:       client,
		systemPrompt: cfg.SystemPrompt,
		timeout:      time.Duration(system.LLMTimeoutMs) * time.Millisecond,
	}

	return &bot.Talent{
		ID:       "ask",
		Commands: []*bot.Command{t.command()},
	}, nil
}

type askTalent struct {
	client       llm.Client
	systemPrompt string
	timeout      time.Duration
}

func (t *askTalent) command() *bot.Command {
	return &bot.Command{
		ID:      "ask",
		Aliases: []string{"ai"},
		Config: bot.CommandConfig{
			Description: "Ask the assistant a question",
			Cooldown:    bot.CooldownConfig{UserSec: 10},
		},
		Execute: t.execute,
	}
}

func (t *askTalent) execute(ctx context.Context, order *bot.Instruction) error {
	res := order.Resonance

	question := order.Content
	if question == "" {
		answer, err := res.Prompt(ctx, bot.PromptInfo{
			Message: "What would you like to ask?",
			OnError: func(ctx context.Context, perr *bot.PromptError) {
				if perr.Code == bot.PromptNoResponse {
					if rerr := res.Reply(ctx, "Never mind, then."); rerr != nil {
						slog.Warn("Failed to send prompt feedback", "error", rerr)
					}
				}
			},
		})
		if err != nil {
			// The prompt already reported to the user; nothing to execute.
			return nil
		}
		question = answer.(string)
	}

	if err := res.Client.Typing(ctx, 5, res.Origin.ChannelID); err != nil {
		slog.Debug("Typing indicator failed", "error", err)
	}

	messages := make([]llm.Message, 0, 2)
	if t.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: t.systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	chatCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	reply, err := t.client.Chat(chatCtx, messages)
	if err != nil {
		slog.Error("LLM request failed", "bot", res.Bot.ID(), "error", err)
		return res.Reply(ctx, "I could not reach my brain, try again later.")
	}
	return res.Reply(ctx, reply)
}

func init() {
	bot.RegisterTalent("ask", &AskFactory{})
}
