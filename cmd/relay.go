package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"weatherbot/pkg/channel"
	"weatherbot/pkg/channel/telegram"
	"weatherbot/pkg/channel/whatsapp"
	"weatherbot/pkg/config"
	"weatherbot/pkg/gateway"
	"weatherbot/pkg/logger"
	"weatherbot/pkg/weather"

	"github.com/spf13/cobra"
)

const (
	telegramChannelName = "telegram"
	whatsappChannelName = "whatsapp"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the chat relay gateway",
	Long:  "Runs WeatherBot as a chat relay gateway with health and readiness endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.relay")

		adapters, err := enabledAdapters(cfg, log)
		if err != nil {
			log.Error("Relay configuration invalid", "error", err)
			return
		}

		backend, err := weather.NewClient(cfg.API, log)
		if err != nil {
			log.Error("Failed to initialize weather client", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := gateway.NewService(cfg, backend, adapters, log)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Relay started", "channels", enabledChannelNames(adapters), "backend", cfg.API.BaseURL)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Relay runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
}

func enabledAdapters(cfg *config.Config, log *slog.Logger) ([]channel.Adapter, error) {
	adapters := make([]channel.Adapter, 0, 2)

	if cfg.Channels.Telegram.Enabled {
		adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, log)
		if err != nil {
			return nil, fmt.Errorf("configure %s channel: %w", telegramChannelName, err)
		}
		adapters = append(adapters, adapter)
	}

	if cfg.Channels.WhatsApp.Enabled {
		adapter, err := whatsapp.NewAdapter(cfg.Channels.WhatsApp, log)
		if err != nil {
			return nil, fmt.Errorf("configure %s channel: %w", whatsappChannelName, err)
		}
		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		return nil, errors.New("no channels are enabled")
	}

	return adapters, nil
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}
