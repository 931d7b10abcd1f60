// Package cmd provides the inkvoice CLI commands.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - chat: interactive terminal session with the Bubble Tea TUI
//   - ask: one-shot generation without the TUI
//   - upload: index a writing sample into a voice profile
//   - profiles, conversations: resource management
//
// All long-running commands handle SIGINT/SIGTERM via context
// cancellation.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkvoice/inkvoice/internal/client"
	"github.com/inkvoice/inkvoice/internal/config"
	"github.com/inkvoice/inkvoice/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "inkvoice",
	Short: "inkvoice - an LLM writing assistant that answers in your own voice",
	Long: `inkvoice generates streaming LLM responses styled after your own
writing. Upload samples of your prose into a voice profile, activate it,
and every generation is conditioned on the closest fragments of your
own writing plus your formatting preferences.

Running inkvoice with no arguments starts the interactive chat TUI.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and validates configuration, and installs the
// configured logger as the process default.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	return cfg, logger, nil
}

// apiClient builds the HTTP client the CLI commands talk through.
func apiClient(cfg *config.Config) *client.Client {
	return client.New(cfg.ServerURL, client.WithOwner(cfg.DefaultOwner))
}
