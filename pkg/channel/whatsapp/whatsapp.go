// Package whatsapp is the poll relay: it drains the Green API notification
// queue, relays qualifying text messages, and acknowledges every consumed
// notification by its receipt token.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"weatherbot/pkg/channel"
	"weatherbot/pkg/config"
	"weatherbot/pkg/greenapi"
	"weatherbot/pkg/metrics"
	"weatherbot/pkg/relay"
	"weatherbot/pkg/weather"
)

const channelName = "whatsapp"

const (
	webhookIncomingMessage = "incomingMessageReceived"
	messageTypeText        = "textMessage"
)

// Loop pacing: a short pause when the queue is empty, a longer one after a
// platform fault so the loop never busy-spins against a broken API.
const (
	emptyQueueDelay   = 2 * time.Second
	errorBackoffDelay = 10 * time.Second
)

// API is the Green API surface the poll loop depends on.
type API interface {
	State(ctx context.Context) (string, error)
	ReceiveNotification(ctx context.Context) (*greenapi.Notification, error)
	DeleteNotification(ctx context.Context, receiptID int64) error
	SendMessage(ctx context.Context, chatID, message string) error
}

// Adapter runs the notification poll loop for one Green API instance.
type Adapter struct {
	api        API
	log        *slog.Logger
	emptyDelay time.Duration
	errorDelay time.Duration
}

// NewAdapter validates WhatsApp credentials and constructs the adapter.
// Missing credentials fail here, before any polling starts.
func NewAdapter(cfg config.WhatsAppConfig, log *slog.Logger) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}

	client, err := greenapi.NewClient(cfg.APIBaseURL, cfg.InstanceID, cfg.Token, log)
	if err != nil {
		return nil, fmt.Errorf("configure green api client: %w", err)
	}

	return newAdapter(client, log), nil
}

func newAdapter(client API, log *slog.Logger) *Adapter {
	return &Adapter{
		api:        client,
		log:        log.With("component", "channel.whatsapp"),
		emptyDelay: emptyQueueDelay,
		errorDelay: errorBackoffDelay,
	}
}

// Name returns the channel identifier used in status reports and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run checks instance authorization, then loops fetch → process →
// acknowledge until the context is cancelled.
//
// Notifications are acknowledged even when their handler faults: an
// unacknowledged poison message would be redelivered forever and starve the
// queue. A crash before the acknowledge still redelivers on restart, so
// delivery stays at-least-once.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	state, err := a.api.State(ctx)
	if err != nil {
		return fmt.Errorf("check instance state: %w", err)
	}
	if state != greenapi.StateAuthorized {
		return fmt.Errorf("green api instance is not authorized (state %q)", state)
	}

	a.log.Info("WhatsApp channel started")

	for {
		if ctx.Err() != nil {
			return nil
		}

		notification, err := a.api.ReceiveNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.log.Error("Failed to fetch notification", "error", err)
			if !sleepInterruptible(ctx, a.errorDelay) {
				return nil
			}
			continue
		}

		if notification == nil {
			if !sleepInterruptible(ctx, a.emptyDelay) {
				return nil
			}
			continue
		}

		a.processNotification(ctx, notification, handler)

		if err := a.api.DeleteNotification(ctx, notification.ReceiptID); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.log.Error("Failed to acknowledge notification", "receipt_id", notification.ReceiptID, "error", err)
			if !sleepInterruptible(ctx, a.errorDelay) {
				return nil
			}
		}
	}
}

// processNotification filters and relays one notification. A panicking
// handler is logged and treated as consumed so the acknowledge still runs.
func (a *Adapter) processNotification(ctx context.Context, notification *greenapi.Notification, handler channel.Handler) {
	defer func() {
		if cause := recover(); cause != nil {
			metrics.RecordNotification(metrics.NotificationFaulted)
			a.log.Error("Handler fault while processing notification", "receipt_id", notification.ReceiptID, "panic", cause)
		}
	}()

	body := notification.Body
	if body.TypeWebhook != webhookIncomingMessage || body.MessageData.TypeMessage != messageTypeText {
		metrics.RecordNotification(metrics.NotificationIgnored)
		a.log.Debug("Ignoring notification", "type_webhook", body.TypeWebhook, "type_message", body.MessageData.TypeMessage)
		return
	}

	inbound := relay.InboundMessage{
		Platform: weather.PlatformWhatsApp,
		SenderID: body.SenderData.Sender,
		Username: body.SenderData.SenderName,
		ChatID:   body.SenderData.ChatID,
		Content:  body.MessageData.TextMessageData.TextMessage,
	}
	a.log.Info("Received message", "chat_id", inbound.ChatID, "sender_id", inbound.SenderID)

	outbound := handler(ctx, inbound)
	metrics.RecordNotification(metrics.NotificationProcessed)

	responseText := strings.TrimSpace(outbound.Text)
	if responseText == "" {
		return
	}

	if err := a.api.SendMessage(ctx, outbound.ChatID, responseText); err != nil {
		metrics.RecordSendFailure(channelName)
		a.log.Error("Failed to send whatsapp message", "chat_id", outbound.ChatID, "error", err)
	}
}

// sleepInterruptible waits for the delay or a cancelled context, reporting
// whether the loop should keep running.
func sleepInterruptible(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
