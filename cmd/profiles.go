package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inkvoice/inkvoice/internal/client"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage voice profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List voice profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, api *client.Client) error {
			profiles, err := api.Profiles(ctx)
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Println("No profiles yet. Create one with: inkvoice profiles create <name>")
				return nil
			}
			for _, p := range profiles {
				marker := " "
				if p.IsActive {
					marker = "*"
				}
				fmt.Printf("%s %s  %s\n", marker, p.ID, p.Name)
			}
			return nil
		})
	},
}

var profilesCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a voice profile",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, api *client.Client) error {
			p, err := api.CreateProfile(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Printf("Created profile %s (%s)\n", p.Name, p.ID)
			return nil
		})
	},
}

var profilesActivateCmd = &cobra.Command{
	Use:   "activate [id]",
	Short: "Make a profile the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, api *client.Client) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid profile id %q", args[0])
			}
			if err := api.ActivateProfile(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Profile %s is now active\n", id)
			return nil
		})
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd, profilesCreateCmd, profilesActivateCmd)
	rootCmd.AddCommand(profilesCmd)
}

// withClient loads config, builds the HTTP client and runs fn with a
// signal-aware context.
func withClient(fn func(ctx context.Context, api *client.Client) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return fn(ctx, apiClient(cfg))
}
