package api

import "context"

// ClientType identifies a chat platform a bot can be connected to.
type ClientType string

const (
	ClientTelegram ClientType = "telegram"
	ClientWeb      ClientType = "web"
)

// User is the resolved identity of a message author on a specific platform.
type User struct {
	ID       string // Platform-specific unique identifier
	Username string // Display name or handle as provided by the platform
	Bot      bool   // True when the account is another automated client
}

// Origin identifies where a message came from on its platform.
type Origin struct {
	ChannelID string // Channel, chat or room identifier
	GuildID   string // Guild/workspace/group identifier; empty on ungrouped platforms
}

// ClientMessage is the normalized inbound payload a client adapter hands to
// the core for every received message. Adapters fill in everything they can
// extract cheaply; the per-client resonance builder refines the rest.
type ClientMessage struct {
	Author  User   // Message author as seen by the platform
	Origin  Origin // Source channel/guild hints
	Content string // Extracted text content
	Direct  bool   // Platform hint: direct/private conversation
	Raw     any    // Original platform-specific message object
}

// Client is the standardized surface of one platform connection owned by a
// bot. Authenticate is called during bot deploy, Start begins emitting
// messages into the sink, Disconnect tears the connection down.
type Client interface {
	Type() ClientType
	Authenticate(ctx context.Context) error
	Disconnect() error
	Start(sink ClientContext) error

	// GetUser resolves a platform user by id.
	GetUser(ctx context.Context, id string) (User, error)
	// Typing shows a typing/acting indicator on the given channel for
	// roughly the given number of seconds. Platforms without the concept
	// return nil.
	Typing(ctx context.Context, seconds int, channelID string) error
	// Send delivers content to a platform destination (channel or user id).
	Send(ctx context.Context, destination string, content string) error
}

// ClientContext is how an adapter talks back to the core that owns it.
// Implemented by the bot aggregate.
type ClientContext interface {
	OnMessage(clientType ClientType, msg *ClientMessage)
}
