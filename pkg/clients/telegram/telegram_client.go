// Package telegram implements the Telegram client adapter over the Bot API
// long-polling transport.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"chorus/pkg/api"
	"chorus/pkg/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramConfig encapsulates the credentials required to authenticate with
// the Telegram Bot API.
type TelegramConfig struct {
	Token string `json:"token"` // The secret BOT API string provided by @BotFather
}

// TelegramClient is the production implementation of api.Client for the
// Telegram platform. Inbound messages arrive over a manually driven
// long-polling loop so the connection can be aborted mid-flight on
// disconnect.
type TelegramClient struct {
	config       TelegramConfig
	bot          *tgbotapi.BotAPI
	messageLimit int // Maximum character count per single message bubble
	pollTimeout  int // Long-poll request timeout in seconds
	stopCtx      context.Context
	stopCancel   context.CancelFunc
}

func New(cfg TelegramConfig, system *config.SystemConfig) *TelegramClient {
	return &TelegramClient{
		config:       cfg,
		messageLimit: system.TelegramMessageLimit,
		pollTimeout:  system.TelegramPollTimeoutSec,
	}
}

func (t *TelegramClient) Type() api.ClientType {
	return api.ClientTelegram
}

// Authenticate creates the SDK client over a dedicated HTTP client whose
// dials are tied to the adapter's stop context, so an active long-polling
// request is instantly aborted on disconnect instead of holding the token
// and causing a 409 Conflict on the next deploy.
func (t *TelegramClient) Authenticate(ctx context.Context) error {
	stopCtx, cancel := context.WithCancel(context.Background())

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	botHttpClient := &http.Client{
		Timeout: time.Duration(t.pollTimeout+30) * time.Second,
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-stopCtx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	bot, err := tgbotapi.NewBotAPIWithClient(t.config.Token, tgbotapi.APIEndpoint, botHttpClient)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	t.bot = bot
	t.stopCtx = stopCtx
	t.stopCancel = cancel
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return nil
}

// Start initiates the long-polling update loop in a background goroutine,
// mapping each Telegram update into the normalized client message format.
func (t *TelegramClient) Start(sink api.ClientContext) error {
	if t.bot == nil {
		return fmt.Errorf("telegram client not authenticated")
	}
	offset := 0

	go func() {
		for {
			select {
			case <-t.stopCtx.Done():
				return
			default:
			}

			reqConfig := tgbotapi.NewUpdate(offset)
			reqConfig.Timeout = t.pollTimeout

			updates, err := t.bot.GetUpdates(reqConfig)
			if err != nil {
				select {
				case <-t.stopCtx.Done():
					return
				default:
					slog.Debug("Failed to get telegram updates", "error", err)
					time.Sleep(3 * time.Second)
					continue
				}
			}

			for _, update := range updates {
				if update.UpdateID < offset {
					continue
				}
				offset = update.UpdateID + 1

				if update.Message == nil || update.Message.From == nil {
					continue
				}
				m := update.Message

				content := m.Text
				if content == "" {
					content = m.Caption
				}

				sink.OnMessage(api.ClientTelegram, &api.ClientMessage{
					Author: api.User{
						ID:       strconv.FormatInt(m.From.ID, 10),
						Username: m.From.UserName,
						Bot:      m.From.IsBot,
					},
					Origin:  api.Origin{ChannelID: strconv.FormatInt(m.Chat.ID, 10)},
					Content: content,
					Direct:  m.Chat.IsPrivate(),
					Raw:     m,
				})
			}
		}
	}()

	return nil
}

// GetUser resolves a Telegram user via the chat info endpoint; private
// chat ids equal user ids on this platform.
func (t *TelegramClient) GetUser(ctx context.Context, id string) (api.User, error) {
	chatID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return api.User{}, fmt.Errorf("invalid telegram user id: %s", id)
	}

	chat, err := t.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return api.User{}, fmt.Errorf("telegram user lookup failed: %w", err)
	}

	username := chat.UserName
	if username == "" {
		username = chat.FirstName
	}
	return api.User{ID: id, Username: username}, nil
}

// Typing shows the typing indicator. Telegram keeps one action alive for
// roughly five seconds, so longer intervals re-send it.
func (t *TelegramClient) Typing(ctx context.Context, seconds int, channelID string) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id for telegram: %s", channelID)
	}

	if _, err := t.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return err
	}
	if seconds <= 5 {
		return nil
	}

	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		deadline := time.Now().Add(time.Duration(seconds) * time.Second)
		for time.Now().Before(deadline) {
			select {
			case <-ctx.Done():
				return
			case <-t.stopCtx.Done():
				return
			case <-ticker.C:
				if _, err := t.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
					return
				}
			}
		}
	}()
	return nil
}

// Send delivers content to a chat, splitting by the configured message
// limit. Chunking is rune-based so multi-byte text never splits mid-glyph.
func (t *TelegramClient) Send(ctx context.Context, destination, content string) error {
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id for telegram: %s", destination)
	}

	msgRunes := []rune(content)
	totalLen := len(msgRunes)

	if totalLen <= t.messageLimit {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, content)); err != nil {
			return fmt.Errorf("telegram send failed: %w", err)
		}
		return nil
	}

	for i := 0; i < totalLen; i += t.messageLimit {
		end := i + t.messageLimit
		if end > totalLen {
			end = totalLen
		}
		chunk := string(msgRunes[i:end])
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram send chunk failed at index %d: %w", i, err)
		}
	}
	return nil
}

// Disconnect aborts the long-polling loop and clears the connection pool.
func (t *TelegramClient) Disconnect() error {
	if t.stopCancel != nil {
		t.stopCancel()
	}

	if t.bot != nil {
		if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
			if transport, ok := httpClient.Transport.(*http.Transport); ok {
				transport.CloseIdleConnections()
			}
		}
	}
	return nil
}
