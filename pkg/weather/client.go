package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"weatherbot/pkg/config"
)

const defaultServerErrorText = "Error interno del servidor"

// queryPayload is the JSON body of one backend weather request.
type queryPayload struct {
	City     string `json:"city"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Platform string `json:"platform"`
	ChatID   string `json:"chat_id"`
}

// errorPayload is the JSON body the backend returns alongside a 500.
type errorPayload struct {
	Message string `json:"message"`
}

// Client issues weather queries against the backend API.
//
// Each call is a single attempt bounded by the configured timeout; retry
// policy belongs to the callers that own a delivery loop.
type Client struct {
	httpClient *http.Client
	baseURL    string
	endpoints  map[Platform]string
	log        *slog.Logger
}

// NewClient validates backend configuration and constructs a client.
func NewClient(cfg config.APIConfig, log *slog.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api.base_url is required")
	}

	if log == nil {
		log = slog.Default()
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		endpoints: map[Platform]string{
			PlatformTelegram: baseURL + strings.TrimSpace(cfg.TelegramEndpoint),
			PlatformWhatsApp: baseURL + strings.TrimSpace(cfg.WhatsAppEndpoint),
		},
		log: log.With("component", "weather.client"),
	}, nil
}

// Query posts one canonical weather request and maps the response to a typed
// outcome. It never returns an error: every failure mode is an Outcome
// variant.
func (c *Client) Query(ctx context.Context, q Query) Outcome {
	endpoint, ok := c.endpoints[q.Platform]
	if !ok || strings.TrimSpace(endpoint) == c.baseURL {
		return TransportError(fmt.Errorf("no endpoint configured for platform %q", q.Platform))
	}

	body, err := json.Marshal(queryPayload{
		City:     q.City,
		UserID:   q.UserID,
		Username: q.Username,
		Platform: string(q.Platform),
		ChatID:   q.ChatID,
	})
	if err != nil {
		return TransportError(fmt.Errorf("encode query: %w", err))
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return TransportError(fmt.Errorf("create request: %w", err))
	}
	request.Header.Set("Content-Type", "application/json")

	startedAt := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.log.Warn("Backend request failed", "city", q.City, "platform", q.Platform, "error", err)
		return TransportError(err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return TransportError(fmt.Errorf("read response body: %w", err))
	}

	c.log.Debug("Backend request completed", "city", q.City, "platform", q.Platform, "status", response.StatusCode, "duration_ms", time.Since(startedAt).Milliseconds())

	switch response.StatusCode {
	case http.StatusOK:
		return decodeSuccess(responseBody)
	case http.StatusNotFound:
		return NotFound(q.City)
	case http.StatusInternalServerError:
		return ServerError(decodeServerError(responseBody))
	default:
		return UnexpectedStatus(response.StatusCode)
	}
}

// Health probes backend reachability. Any HTTP response counts as reachable;
// only transport-level failures surface as errors.
func (c *Client) Health(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	return nil
}

// decodeSuccess parses a 200 body into a success outcome. Absent fields fall
// back to their display defaults; a body that is not a JSON object at all is
// a transport fault.
func decodeSuccess(body []byte) Outcome {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var payload reportPayload
	if err := decoder.Decode(&payload); err != nil {
		return TransportError(fmt.Errorf("malformed success body: %w", err))
	}

	return Success(payload.toReport())
}

func decodeServerError(body []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return defaultServerErrorText
	}
	if strings.TrimSpace(payload.Message) == "" {
		return defaultServerErrorText
	}

	return payload.Message
}
