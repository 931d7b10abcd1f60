package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkvoice/inkvoice/internal/client"
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convos"},
	Short:   "Manage conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, api *client.Client) error {
			list, err := api.Conversations(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No conversations yet. Start one with: inkvoice chat")
				return nil
			}
			for _, c := range list {
				title := c.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("%s  %s  %s\n", c.ID, c.UpdatedAt.Local().Format("2006-01-02 15:04"), title)
			}
			return nil
		})
	},
}

var conversationsNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, api *client.Client) error {
			c, err := api.CreateConversation(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Printf("Created conversation %s\n", c.ID)
			return nil
		})
	},
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd, conversationsNewCmd)
	rootCmd.AddCommand(conversationsCmd)
}
