package monitor

import (
	"time"

	"chorus/pkg/api"
)

// Direction marks which way a monitored message flowed through the pipeline.
type Direction string

const (
	DirectionIn  Direction = "IN"  // heard from a client
	DirectionOut Direction = "OUT" // sent back to a client
)

// Message is one monitored pipeline event.
type Message struct {
	Timestamp  time.Time
	Direction  Direction
	BotID      string
	ClientType api.ClientType
	Username   string
	Content    string
}

// Monitor receives every message heard or sent by every bot.
type Monitor interface {
	Start() error
	Stop() error
	OnMessage(msg Message)
}
