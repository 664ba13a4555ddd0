// Package web implements a WebSocket client adapter: a local chat surface
// for browser UIs and integration testing, one socket per user.
package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"context"

	"chorus/pkg/api"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for decoupled UI
	},
}

type WebConfig struct {
	Port int `json:"port"` // Default: 8080
}

// IncomingFrame is one message received from a connected UI.
type IncomingFrame struct {
	Text string `json:"text"`
}

// OutgoingFrame is one event pushed to a connected UI.
type OutgoingFrame struct {
	Type    string `json:"type"` // "message" or "typing"
	Text    string `json:"text,omitempty"`
	Seconds int    `json:"seconds,omitempty"`
}

// SafeConn serializes concurrent writes to one websocket connection.
type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteMessage(messageType int, data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.Conn.WriteMessage(messageType, data)
}

// WebClient is the api.Client implementation for the websocket surface.
// Every conversation is direct: each user talks to the bot on their own
// socket, and the channel id equals the user id.
type WebClient struct {
	config      WebConfig
	server      *http.Server
	connections map[string]*SafeConn // Map UserID -> WS Connection
	users       map[string]api.User  // Identities seen on connect
	mu          sync.RWMutex
}

func New(cfg WebConfig) *WebClient {
	return &WebClient{
		config:      cfg,
		connections: make(map[string]*SafeConn),
		users:       make(map[string]api.User),
	}
}

func (c *WebClient) Type() api.ClientType {
	return api.ClientWeb
}

// Authenticate validates the listen configuration. The websocket surface
// has no upstream to authenticate against.
func (c *WebClient) Authenticate(ctx context.Context) error {
	if c.config.Port <= 0 || c.config.Port > 65535 {
		return fmt.Errorf("invalid web port %d", c.config.Port)
	}
	return nil
}

func (c *WebClient) Start(sink api.ClientContext) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c.handleWebSocket(w, r, sink)
	})

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.config.Port),
		Handler: mux,
	}

	slog.Info("Web client listening", "port", c.config.Port)

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Web client server error", "error", err)
		}
	}()

	return nil
}

func (c *WebClient) Disconnect() error {
	if c.server != nil {
		return c.server.Close()
	}
	return nil
}

// GetUser resolves a user from the identities seen on connect.
func (c *WebClient) GetUser(ctx context.Context, id string) (api.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if u, ok := c.users[id]; ok {
		return u, nil
	}
	return api.User{ID: id, Username: "WebUser"}, nil
}

// Typing pushes a typing indicator frame; the UI decides how to render it.
func (c *WebClient) Typing(ctx context.Context, seconds int, channelID string) error {
	return c.writeFrame(channelID, OutgoingFrame{Type: "typing", Seconds: seconds})
}

// Send delivers content to a connected user. Destination is the user id,
// which on this surface is also the channel id.
func (c *WebClient) Send(ctx context.Context, destination, content string) error {
	return c.writeFrame(destination, OutgoingFrame{Type: "message", Text: content})
}

func (c *WebClient) writeFrame(userID string, frame OutgoingFrame) error {
	c.mu.RLock()
	conn, ok := c.connections[userID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("web user %s not connected", userID)
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebClient) handleWebSocket(w http.ResponseWriter, r *http.Request, sink api.ClientContext) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS upgrade failed", "error", err)
		return
	}
	conn := &SafeConn{Conn: rawConn}

	// Identity comes from the query string; anonymous sockets key off the
	// remote address.
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = r.RemoteAddr
	}
	username := r.URL.Query().Get("name")
	if username == "" {
		username = "WebUser"
	}
	user := api.User{ID: userID, Username: username}

	c.mu.Lock()
	c.connections[userID] = conn
	c.users[userID] = user
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.connections, userID)
		c.mu.Unlock()
		conn.Close()
	}()

	slog.Debug("Web user connected", "user", userID)

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var content string
		var incoming IncomingFrame
		if err := json.Unmarshal(msgBytes, &incoming); err == nil && incoming.Text != "" {
			content = incoming.Text
		} else {
			// Fallback: treat as plain text (backward compatibility)
			content = string(msgBytes)
		}

		sink.OnMessage(api.ClientWeb, &api.ClientMessage{
			Author:  user,
			Origin:  api.Origin{ChannelID: userID},
			Content: content,
			Direct:  true,
			Raw:     msgBytes,
		})
	}
}
