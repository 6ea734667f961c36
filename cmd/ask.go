/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"weatherbot/pkg/config"
	"weatherbot/pkg/reply"
	"weatherbot/pkg/weather"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var askPlatform string

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [city]",
	Short: "Query the weather backend once from the terminal",
	Long:  "Loads WeatherBot configuration, sends one city query to the weather backend, and prints the reply the bots would send.",
	Run: func(cmd *cobra.Command, args []string) {
		city := strings.TrimSpace(strings.Join(args, " "))
		if city == "" {
			fmt.Println("usage: weatherbot ask <city>")
			return
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		client, err := weather.NewClient(cfg.API, nil)
		if err != nil {
			fmt.Printf("failed to initialize weather client: %v\n", err)
			return
		}

		platform := weather.Platform(strings.ToLower(strings.TrimSpace(askPlatform)))
		if platform != weather.PlatformTelegram && platform != weather.PlatformWhatsApp {
			fmt.Printf("unknown platform %q, use telegram or whatsapp\n", askPlatform)
			return
		}

		outcome := client.Query(context.Background(), weather.Query{
			City:     city,
			UserID:   "cli",
			Username: localUsername(),
			Platform: platform,
			ChatID:   "cli",
		})

		fmt.Println(renderAskBanner(city))
		fmt.Println(reply.Format(outcome))
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askPlatform, "platform", string(weather.PlatformTelegram), "backend endpoint to query (telegram or whatsapp)")
}

func localUsername() string {
	if current, err := user.Current(); err == nil && current.Username != "" {
		return current.Username
	}
	if value := strings.TrimSpace(os.Getenv("USER")); value != "" {
		return value
	}

	return "cli"
}

func renderAskBanner(city string) string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("25")).
		Padding(0, 2)

	return style.Render("🌤️ " + city)
}
