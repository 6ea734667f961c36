package relay

import (
	"strings"

	"weatherbot/pkg/weather"
)

// Action tells the relay what to do with a normalized message.
type Action int

const (
	// ActionSkip drops the message without a reply.
	ActionSkip Action = iota
	// ActionHelp routes to the static help reply, no backend call.
	ActionHelp
	// ActionQuery dispatches the canonical query to the backend.
	ActionQuery
)

// whatsappSuffix is the contact-domain suffix Green API appends to senders.
const whatsappSuffix = "@c.us"

// helpKeywords are recognized case-insensitively, with or without a leading
// slash.
var helpKeywords = map[string]struct{}{
	"help":  {},
	"start": {},
	"ayuda": {},
	"menu":  {},
}

// Normalize extracts a canonical weather query from one inbound message.
//
// Empty text and unrecognized commands are skipped; anything else is treated
// verbatim as a city name. City validity is the backend's concern.
func Normalize(msg InboundMessage) (weather.Query, Action) {
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return weather.Query{}, ActionSkip
	}

	keyword := strings.ToLower(strings.TrimPrefix(text, "/"))
	if _, ok := helpKeywords[keyword]; ok {
		return weather.Query{}, ActionHelp
	}
	if strings.HasPrefix(text, "/") {
		return weather.Query{}, ActionSkip
	}

	userID := msg.SenderID
	if msg.Platform == weather.PlatformWhatsApp {
		userID = strings.TrimSuffix(userID, whatsappSuffix)
	}

	username := strings.TrimSpace(msg.Username)
	if username == "" {
		username = userID
	}

	return weather.Query{
		City:     text,
		UserID:   userID,
		Username: username,
		Platform: msg.Platform,
		ChatID:   msg.ChatID,
	}, ActionQuery
}
