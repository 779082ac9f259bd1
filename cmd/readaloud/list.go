package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nadzzz/readaloud/internal/message"
)

// maxTextColumn is the width of the TEXT column in listings.
const maxTextColumn = 48

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated audio files, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		res, err := a.dispatcher.ListAudio(cmd.Context())
		if err != nil {
			return err
		}
		return printAudioList(cmd.OutOrStdout(), res.Files)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func printAudioList(w io.Writer, files []message.AudioFile) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tCREATED\tTEXT")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", f.Name, f.Size, f.CreatedAt.Local().Format(time.DateTime), truncate(f.OriginalText, maxTextColumn))
	}
	return tw.Flush()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
