package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Apply the retention policy to the output directory now",
	Long: `Delete audio files older than storage.max_age and the oldest files
beyond storage.max_files, along with their metadata.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		removed := a.dispatcher.Cleanup(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d file(s)\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
