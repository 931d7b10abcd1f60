package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var uploadProfile string

var uploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload writing samples into a voice profile",
	Long: `upload reads each file and indexes it as a writing sample of the
given profile. Without --profile the active profile is used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadProfile, "profile", "", "target profile id (default: the active profile)")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := apiClient(cfg)

	var profileID uuid.UUID
	if uploadProfile != "" {
		profileID, err = uuid.Parse(uploadProfile)
		if err != nil {
			return fmt.Errorf("invalid profile id %q", uploadProfile)
		}
	} else {
		profiles, err := api.Profiles(ctx)
		if err != nil {
			return err
		}
		for _, p := range profiles {
			if p.IsActive {
				profileID = p.ID
				break
			}
		}
		if profileID == uuid.Nil {
			return fmt.Errorf("no active profile; pass --profile or run: inkvoice profiles activate <id>")
		}
	}

	for _, path := range args {
		data, err := os.ReadFile(path) // #nosec G304 -- user-supplied path is the point
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		sampleID, fragments, err := api.UploadSample(ctx, profileID, filepath.Base(path), string(data))
		if err != nil {
			return fmt.Errorf("uploading %s: %w", path, err)
		}
		fmt.Printf("%s: sample %s, %d fragments indexed\n", path, sampleID, fragments)
	}
	return nil
}
