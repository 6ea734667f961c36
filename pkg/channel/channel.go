package channel

import (
	"context"

	"weatherbot/pkg/relay"
)

// Handler processes one inbound platform message and returns the reply to
// send. An empty reply text means nothing is sent.
type Handler func(context.Context, relay.InboundMessage) relay.OutboundMessage

// Adapter bridges one chat platform (Telegram push, WhatsApp poll) into the
// weather relay.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
