package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"weatherbot/pkg/channel"
	"weatherbot/pkg/config"
	"weatherbot/pkg/metrics"
	"weatherbot/pkg/relay"
	"weatherbot/pkg/weather"
)

const channelName = "telegram"
const messagePreviewLimit = 240
const typingRefreshInterval = 4 * time.Second

// Adapter is the push relay: the host framework delivers one update at a
// time and each update is handled to completion before the next.
type Adapter struct {
	cfg       config.TelegramConfig
	allowFrom map[string]struct{}
	log       *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs an adapter.
// A missing token is a startup error, never a mid-loop one.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in status reports and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and relays each text update through the
// handler. The handler owns all failure conversion, so nothing here can
// crash the update loop short of the transport itself failing.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	bot, err := telego.NewBot(strings.TrimSpace(a.cfg.Token))
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			a.handleUpdate(ctx, bot, update, handler)
		}
	}
}

// handleUpdate relays one update. Non-text updates and unauthorized senders
// are dropped before the pipeline runs.
func (a *Adapter) handleUpdate(ctx context.Context, bot *telego.Bot, update telego.Update, handler channel.Handler) {
	message := update.Message
	if message == nil {
		return
	}

	content := strings.TrimSpace(message.Text)
	if content == "" {
		// Photos, stickers, locations: the relay only understands text.
		return
	}
	if message.From == nil {
		a.log.Debug("Ignoring message without sender")
		return
	}

	senderID := strconv.FormatInt(message.From.ID, 10)
	if !a.senderAllowed(senderID) {
		a.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
		return
	}

	username := strings.TrimSpace(message.From.Username)
	if username == "" {
		username = strings.TrimSpace(message.From.FirstName)
	}

	chatID := strconv.FormatInt(message.Chat.ID, 10)
	inbound := relay.InboundMessage{
		Platform: weather.PlatformTelegram,
		SenderID: senderID,
		Username: username,
		ChatID:   chatID,
		Content:  content,
	}
	a.log.Info("Received message", "chat_id", chatID, "sender_id", senderID, "content", previewText(content))

	stopTyping := a.startTypingIndicator(ctx, bot, message.Chat.ID)
	outbound := handler(ctx, inbound)
	stopTyping()

	responseText := strings.TrimSpace(outbound.Text)
	if responseText == "" {
		return
	}
	a.log.Info("Sending reply", "chat_id", chatID, "content", previewText(responseText))

	params := tu.Message(tu.ID(message.Chat.ID), responseText)
	params.ParseMode = telego.ModeMarkdown
	if _, err := bot.SendMessage(ctx, params); err != nil {
		metrics.RecordSendFailure(channelName)
		a.log.Error("Failed to send telegram message", "chat_id", chatID, "error", err)
	}
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}

// startTypingIndicator sends an initial typing action and refreshes it
// periodically until the returned cancel function is called. The backend
// call can take several seconds; the chat shows "typing" the whole time.
func (a *Adapter) startTypingIndicator(ctx context.Context, bot *telego.Bot, chatID int64) context.CancelFunc {
	typingCtx, cancel := context.WithCancel(ctx)

	sendTyping := func() {
		if err := bot.SendChatAction(typingCtx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping)); err != nil && typingCtx.Err() == nil {
			a.log.Debug("Failed to send typing indicator", "chat_id", chatID, "error", err)
		}
	}

	sendTyping()

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				sendTyping()
			}
		}
	}()

	return cancel
}
