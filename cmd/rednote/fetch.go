package main

import (
	"encoding/json"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/VamLeovr/rednote-mind-skills/internal/metrics"
)

var (
	fetchImages bool
	fetchJSON   bool
)

func init() {
	fetchCmd.Flags().BoolVar(&fetchImages, "images", false, "download and compress images")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the batch as JSON")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch URL...",
	Short: "Fetches note pages as one paced batch.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSite(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		m := metrics.New()
		result := newExecutor(s, m).Fetch(cmd.Context(), args, fetchImages)
		if cfg.Output.MetricsFile != "" {
			if err := m.WriteTextfile(cfg.Output.MetricsFile); err != nil {
				logger.Warn("write metrics", "path", cfg.Output.MetricsFile, "err", err)
			}
		}

		if fetchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Note", "Title", "Author", "Likes", "Chars", "Images"})
		for _, n := range result.Notes {
			t.AppendRow(table.Row{n.NoteID, n.Title, n.Author.Name, n.Likes, n.TextLength(), len(n.Images)})
		}
		for _, e := range result.Errors {
			t.AppendRow(table.Row{"FAILED", e.URL, e.Reason})
		}
		t.AppendFooter(table.Row{"", "ok", result.SuccessCount, "failed", result.FailedCount})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
