package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/VamLeovr/rednote-mind-skills/internal/compress"
	"github.com/VamLeovr/rednote-mind-skills/internal/storage"
)

var (
	compressTargetKB int
	compressOut      string
)

func init() {
	compressCmd.Flags().IntVar(&compressTargetKB, "target-kb", 0, "size ceiling in KB (defaults to batch.compress_target)")
	compressCmd.Flags().StringVarP(&compressOut, "out", "o", "", "write the result here")
	rootCmd.AddCommand(compressCmd)
}

var compressCmd = &cobra.Command{
	Use:   "compress FILE [--target-kb 500] [--out PATH]",
	Short: "Runs one image through the compression ladder.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		target := cfg.Batch.CompressTarget
		if compressTargetKB > 0 {
			target = compressTargetKB * 1024
		}

		res := compress.New(logger).Smart(raw, target, cfg.Batch.CompressOptions)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Original", "Compressed", "Saved %", "Size", "Format", "Tier"})
		t.AppendRow(table.Row{
			res.OriginalSize, res.CompressedSize, res.Ratio,
			fmt.Sprintf("%dx%d", res.Width, res.Height), res.Format, res.Tier,
		})
		t.SetStyle(table.StyleRounded)
		t.Render()

		if compressOut == "" {
			return nil
		}
		if err := os.WriteFile(compressOut, res.Data, 0o644); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		logger.Info("written", "path", compressOut, "ext", storage.Extension(res.Format, res.Data))
		return nil
	},
}
