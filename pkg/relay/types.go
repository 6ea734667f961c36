package relay

import "weatherbot/pkg/weather"

// InboundMessage is one platform event already reduced to plain text by its
// channel adapter. It is consumed exactly once by Handle.
type InboundMessage struct {
	Platform weather.Platform
	SenderID string
	Username string
	ChatID   string
	Content  string
}

// OutboundMessage is the reply destined for the platform send primitive.
// Empty text means there is nothing to send.
type OutboundMessage struct {
	ChatID string
	Text   string
}
