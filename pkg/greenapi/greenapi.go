// Package greenapi is a minimal typed client for the Green API WhatsApp
// gateway: receive/delete pending notifications, send messages, and read the
// instance state.
package greenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StateAuthorized is the instance state required before polling can start.
const StateAuthorized = "authorized"

// requestTimeout bounds every Green API call. receiveNotification long-polls
// on the server side, so this sits well above its hold time.
const requestTimeout = 30 * time.Second

// Notification is one pending inbound event, paired with the receipt token
// that acknowledges it.
type Notification struct {
	ReceiptID int64            `json:"receiptId"`
	Body      NotificationBody `json:"body"`
}

// NotificationBody is the platform event envelope.
type NotificationBody struct {
	TypeWebhook string      `json:"typeWebhook"`
	SenderData  SenderData  `json:"senderData"`
	MessageData MessageData `json:"messageData"`
}

// SenderData identifies the sender and conversation of an inbound event.
type SenderData struct {
	Sender     string `json:"sender"`
	ChatID     string `json:"chatId"`
	SenderName string `json:"senderName"`
}

// MessageData carries the typed message payload.
type MessageData struct {
	TypeMessage     string          `json:"typeMessage"`
	TextMessageData TextMessageData `json:"textMessageData"`
}

// TextMessageData holds the plain text of a textMessage event.
type TextMessageData struct {
	TextMessage string `json:"textMessage"`
}

type stateResponse struct {
	StateInstance string `json:"stateInstance"`
}

type sendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// Client talks to one Green API instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	instanceID string
	token      string
	log        *slog.Logger
}

// NewClient validates instance credentials and constructs a client.
func NewClient(baseURL, instanceID, token string, log *slog.Logger) (*Client, error) {
	if strings.TrimSpace(instanceID) == "" {
		return nil, errors.New("green api instance id is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("green api token is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("green api base url is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		instanceID: strings.TrimSpace(instanceID),
		token:      strings.TrimSpace(token),
		log:        log.With("component", "greenapi"),
	}, nil
}

func (c *Client) methodURL(method string, extra ...string) string {
	url := fmt.Sprintf("%s/waInstance%s/%s/%s", c.baseURL, c.instanceID, method, c.token)
	for _, part := range extra {
		url += "/" + part
	}

	return url
}

// State reads the instance authorization state.
func (c *Client) State(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, c.methodURL("getStateInstance"), nil)
	if err != nil {
		return "", err
	}

	var state stateResponse
	if err := json.Unmarshal(body, &state); err != nil {
		return "", fmt.Errorf("decode state response: %w", err)
	}

	return state.StateInstance, nil
}

// ReceiveNotification pulls the next pending notification. A nil notification
// with a nil error means the queue is empty.
func (c *Client) ReceiveNotification(ctx context.Context) (*Notification, error) {
	body, err := c.do(ctx, http.MethodGet, c.methodURL("receiveNotification"), nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var notification Notification
	if err := json.Unmarshal(trimmed, &notification); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}

	return &notification, nil
}

// DeleteNotification acknowledges a notification by its receipt token so it
// is not redelivered.
func (c *Client) DeleteNotification(ctx context.Context, receiptID int64) error {
	url := c.methodURL("deleteNotification", strconv.FormatInt(receiptID, 10))
	if _, err := c.do(ctx, http.MethodDelete, url, nil); err != nil {
		return err
	}

	return nil
}

// SendMessage delivers text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, message string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Message: message})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPost, c.methodURL("sendMessage"), payload); err != nil {
		return err
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("green api status %d: %s", response.StatusCode, previewBody(body))
	}

	return body, nil
}

func previewBody(body []byte) string {
	const limit = 160

	text := strings.TrimSpace(string(body))
	if len(text) <= limit {
		return text
	}

	return text[:limit] + "..."
}
