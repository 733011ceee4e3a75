package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	searchKeyword  string
	searchLimit    int
	searchSort     string
	searchMinLikes int
)

func init() {
	searchCmd.Flags().StringVarP(&searchKeyword, "keyword", "k", "", "search keyword")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum results")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "popular | latest | general (defaults to retrieval.sort_mode)")
	searchCmd.Flags().IntVar(&searchMinLikes, "min-likes", -1, "minimum likes (defaults to retrieval.min_likes)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search --keyword K [--limit N]",
	Short: "Searches RedNote and prints the result cards.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyword := searchKeyword
		if keyword == "" && len(args) == 1 {
			keyword = args[0]
		}
		if keyword == "" {
			return fmt.Errorf("--keyword is required")
		}
		sortMode := searchSort
		if sortMode == "" {
			sortMode = cfg.Retrieval.SortMode
		}
		minLikes := searchMinLikes
		if minLikes < 0 {
			minLikes = cfg.Retrieval.MinLikes
		}

		s, err := openSite(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		results, err := s.searcher.Search(cmd.Context(), keyword, searchLimit, sortMode, minLikes)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Likes", "Title", "Author", "URL"})
		for i, r := range results {
			t.AppendRow(table.Row{i + 1, r.Likes, r.Title, r.Author, r.URL})
		}
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d results", len(results))})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
