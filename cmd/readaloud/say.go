package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nadzzz/readaloud/internal/message"
)

var (
	sayNoPlay bool
	sayVoice  string
	sayRate   float64
	sayVolume float64
	sayFormat string
)

var sayCmd = &cobra.Command{
	Use:   "say TEXT...",
	Short: "Read text aloud once and exit",
	Long: `Synthesize TEXT, store it in the output directory and play it,
exactly as the read_aloud tool does, then exit.`,
	Example: `  readaloud say "This is a test"
  readaloud say --no-play --format mp3 "Save this for later"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSay,
}

func init() {
	sayCmd.Flags().BoolVar(&sayNoPlay, "no-play", false, "only save the audio file, do not play it")
	sayCmd.Flags().StringVar(&sayVoice, "voice", "", "voice identifier (see 'readaloud voices')")
	sayCmd.Flags().Float64Var(&sayRate, "rate", 1.0, "speech rate multiplier, 0.1 to 10.0")
	sayCmd.Flags().Float64Var(&sayVolume, "volume", 1.0, "volume, 0.0 to 1.0")
	sayCmd.Flags().StringVar(&sayFormat, "format", "wav", "output format: wav, mp3 or ogg")
	rootCmd.AddCommand(sayCmd)
}

func runSay(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.dispatcher.Wait()

	play := !sayNoPlay
	req := &message.ReadAloudRequest{
		Text:   strings.Join(args, " "),
		Voice:  sayVoice,
		Rate:   &sayRate,
		Volume: &sayVolume,
		Play:   &play,
		Format: sayFormat,
	}
	res, err := a.dispatcher.ReadAloud(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", res.Message)
	return nil
}
