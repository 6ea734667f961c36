// Package relay implements the shared normalize → query → format pipeline
// both channel adapters drive.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"weatherbot/pkg/metrics"
	"weatherbot/pkg/reply"
	"weatherbot/pkg/weather"
)

// QueryService is the backend call the relay dispatches canonical queries to.
type QueryService interface {
	Query(ctx context.Context, q weather.Query) weather.Outcome
}

// Relay owns the per-message pipeline. It is stateless across messages; the
// only shared data is read-only configuration inside the backend client.
type Relay struct {
	backend QueryService
	log     *slog.Logger
}

// New constructs a relay over the given backend.
func New(backend QueryService, log *slog.Logger) (*Relay, error) {
	if backend == nil {
		return nil, errors.New("backend query service is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Relay{backend: backend, log: log.With("component", "relay")}, nil
}

// Handle runs the full pipeline for one inbound message and returns the reply
// to send. It never panics out to the caller: a handler fault becomes a
// generic error reply plus a log entry.
func (r *Relay) Handle(ctx context.Context, msg InboundMessage) (out OutboundMessage) {
	log := r.log.With(
		"request_id", uuid.NewString(),
		"platform", msg.Platform,
		"chat_id", msg.ChatID,
	)

	defer func() {
		if cause := recover(); cause != nil {
			log.Error("Handler fault while processing message", "panic", cause)
			out = OutboundMessage{ChatID: msg.ChatID, Text: reply.GenericErrorText}
		}
	}()

	query, action := Normalize(msg)
	switch action {
	case ActionSkip:
		log.Debug("Skipping message", "content_length", len(msg.Content))
		return OutboundMessage{ChatID: msg.ChatID}
	case ActionHelp:
		log.Info("Sending help reply")
		return OutboundMessage{ChatID: msg.ChatID, Text: reply.HelpText}
	}

	startedAt := time.Now()
	outcome := r.backend.Query(ctx, query)
	metrics.RecordQuery(string(query.Platform), string(outcome.Kind), time.Since(startedAt))
	log.Info("Weather query relayed", "city", query.City, "outcome", outcome.Kind)

	return OutboundMessage{ChatID: msg.ChatID, Text: reply.Format(outcome)}
}
