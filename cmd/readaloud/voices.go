package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices of the speech engine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		voices := a.dispatcher.ListVoices(cmd.Context()).AvailableVoices
		if len(voices) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "no voices found (is %s installed?)\n", a.engine.Name())
			return nil
		}
		for _, v := range voices {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(voicesCmd)
}
