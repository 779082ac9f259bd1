package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "readaloud",
	Short: "Text-to-speech MCP server",
	Long: `readaloud converts text to speech for MCP clients.

Without a subcommand it runs the server on the configured transports
(MCP over stdio by default). The other subcommands work on the same
configuration without starting a server.`,
	Args:          cobra.NoArgs,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./readaloud.yaml, ./configs/readaloud.yaml, /etc/readaloud/readaloud.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	addServeFlags(rootCmd)
}
