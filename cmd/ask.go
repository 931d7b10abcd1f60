package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	askModel        string
	askConversation string
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Run a one-shot generation without the TUI",
	Long: `ask sends one prompt and prints the full response. A fresh
conversation is created unless --conversation names an existing one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askModel, "model", "", "model to generate with (default from config)")
	askCmd.Flags().StringVar(&askConversation, "conversation", "", "continue an existing conversation by id")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := apiClient(cfg)

	modelID := askModel
	if modelID == "" {
		modelID = cfg.DefaultModel
	}

	var conversationID uuid.UUID
	if askConversation != "" {
		conversationID, err = uuid.Parse(askConversation)
		if err != nil {
			return fmt.Errorf("invalid conversation id %q", askConversation)
		}
	} else {
		c, err := api.CreateConversation(ctx, "")
		if err != nil {
			return fmt.Errorf("creating conversation: %w", err)
		}
		conversationID = c.ID
	}

	prompt := strings.Join(args, " ")
	text, _, err := api.GenerateSync(ctx, conversationID, prompt, modelID)
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}
