package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	envAPIBaseURL          = "API_BASE_URL"
	envAPITelegramEndpoint = "API_TELEGRAM_ENDPOINT"
	envAPIWhatsAppEndpoint = "API_WHATSAPP_ENDPOINT"
	envTelegramBotToken    = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom   = "TELEGRAM_ALLOW_FROM"
	envGreenAPIInstanceID  = "GREEN_API_INSTANCE_ID"
	envGreenAPIToken       = "GREEN_API_TOKEN"
)

const (
	defaultAPIBaseURL         = "http://web:8000"
	defaultTelegramEndpoint   = "/api/weather/telegram"
	defaultWhatsAppEndpoint   = "/api/weather/whatsapp"
	defaultRequestTimeoutSecs = 10
	defaultGreenAPIBaseURL    = "https://api.green-api.com"
)

// Config is the root runtime configuration loaded from config.json plus
// environment overrides.
type Config struct {
	API      APIConfig      `json:"api"`
	Channels ChannelsConfig `json:"channels"`
	Gateway  GatewayConfig  `json:"gateway"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// APIConfig points at the weather backend.
type APIConfig struct {
	BaseURL               string `json:"base_url"`
	TelegramEndpoint      string `json:"telegram_endpoint"`
	WhatsAppEndpoint      string `json:"whatsapp_endpoint"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// ChannelsConfig stores chat platform adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
}

// TelegramConfig configures the Telegram push channel.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from"`
}

// WhatsAppConfig configures the WhatsApp poll channel (Green API instance).
type WhatsAppConfig struct {
	Enabled    bool   `json:"enabled"`
	InstanceID string `json:"instance_id"`
	Token      string `json:"token"`
	APIBaseURL string `json:"api_base_url"`
}

// GatewayConfig configures the status HTTP server bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// LoadConfig resolves config.json when present, unmarshals it, applies
// environment overrides, and fills contract defaults.
//
// A missing config file is not an error: the bots are deployable from
// environment variables alone.
func LoadConfig() (*Config, error) {
	var cfg Config

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects env-driven settings on top of file config.
//
// Providing a platform credential through the environment also enables that
// channel, matching how the original deployments were switched on.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if value := strings.TrimSpace(os.Getenv(envAPIBaseURL)); value != "" {
		cfg.API.BaseURL = value
	}
	if value := strings.TrimSpace(os.Getenv(envAPITelegramEndpoint)); value != "" {
		cfg.API.TelegramEndpoint = value
	}
	if value := strings.TrimSpace(os.Getenv(envAPIWhatsAppEndpoint)); value != "" {
		cfg.API.WhatsAppEndpoint = value
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
		cfg.Channels.Telegram.Enabled = true
	}
	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}

	if instanceID := strings.TrimSpace(os.Getenv(envGreenAPIInstanceID)); instanceID != "" {
		cfg.Channels.WhatsApp.InstanceID = instanceID
		cfg.Channels.WhatsApp.Enabled = true
	}
	if token := strings.TrimSpace(os.Getenv(envGreenAPIToken)); token != "" {
		cfg.Channels.WhatsApp.Token = token
	}
}

// applyDefaults fills the backend contract defaults for values left unset.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		cfg.API.BaseURL = defaultAPIBaseURL
	}
	if strings.TrimSpace(cfg.API.TelegramEndpoint) == "" {
		cfg.API.TelegramEndpoint = defaultTelegramEndpoint
	}
	if strings.TrimSpace(cfg.API.WhatsAppEndpoint) == "" {
		cfg.API.WhatsAppEndpoint = defaultWhatsAppEndpoint
	}
	if cfg.API.RequestTimeoutSeconds <= 0 {
		cfg.API.RequestTimeoutSeconds = defaultRequestTimeoutSecs
	}
	if strings.TrimSpace(cfg.Channels.WhatsApp.APIBaseURL) == "" {
		cfg.Channels.WhatsApp.APIBaseURL = defaultGreenAPIBaseURL
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is WEATHERBOT_CONFIG first, then cwd-local fallback paths. An
// empty path means no file config is in play.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("WEATHERBOT_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("WEATHERBOT_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
