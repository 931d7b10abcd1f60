package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inkvoice/inkvoice/internal/config"
	"github.com/inkvoice/inkvoice/internal/tui"
)

var (
	chatModel string
	chatNew   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat TUI",
	Long: `chat opens the terminal UI against the configured server. The last
conversation is resumed unless --new is given; the session is remembered
in ~/.inkvoice/state.json.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatModel, "model", "", "model to generate with (default from config)")
	chatCmd.Flags().BoolVar(&chatNew, "new", false, "start a fresh conversation")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := apiClient(cfg)

	modelID := chatModel
	if modelID == "" {
		modelID = cfg.DefaultModel
	}

	stateDir, err := config.Dir()
	if err != nil {
		return err
	}
	state, err := tui.LoadState(stateDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	conversationID := state.ConversationID
	if chatNew || conversationID == uuid.Nil {
		c, err := api.CreateConversation(ctx, "")
		if err != nil {
			return fmt.Errorf("creating conversation: %w", err)
		}
		conversationID = c.ID
	} else {
		// The remembered conversation may have been deleted server-side.
		if _, err := api.Messages(ctx, conversationID); err != nil {
			c, err := api.CreateConversation(ctx, "")
			if err != nil {
				return fmt.Errorf("creating conversation: %w", err)
			}
			conversationID = c.ID
		}
	}

	if err := tui.SaveState(stateDir, tui.SessionState{ConversationID: conversationID, ModelID: modelID}); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}

	model, err := tui.New(ctx, api, conversationID, modelID)
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
