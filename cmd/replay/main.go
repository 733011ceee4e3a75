// Command replay re-runs recorded retrieval rounds through the fast gate and
// the judge offline and compares the decisions with the recorded ones.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/VamLeovr/rednote-mind-skills/internal/replay"
	"github.com/VamLeovr/rednote-mind-skills/internal/state"
)

// errDiverged makes the process exit 1 when a replayed decision differs.
var errDiverged = errors.New("replayed decisions diverge")

// #region main

var rootCmd = &cobra.Command{
	Use:           "replay",
	Short:         "replay checks recorded sufficiency decisions against the current gates.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, errDiverged) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

// #endregion main

// #region run

var runCmd = &cobra.Command{
	Use:   "run FIXTURE",
	Short: "Replays a fixture file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := replay.LoadFixture(args[0])
		if err != nil {
			return err
		}
		return replayFixture(cmd.Context(), f)
	},
}

// #endregion run

// #region ledger

var (
	ledgerDB  string
	ledgerRun string
	exportOut string
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger --db PATH --run ID",
	Short: "Replays a run straight from the ledger.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := fromLedger(ledgerDB, ledgerRun)
		if err != nil {
			return err
		}
		return replayFixture(cmd.Context(), f)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export --db PATH --run ID --out FIXTURE",
	Short: "Writes a run from the ledger as a fixture file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := fromLedger(ledgerDB, ledgerRun)
		if err != nil {
			return err
		}
		if err := replay.WriteFixture(exportOut, f); err != nil {
			return err
		}
		fmt.Printf("wrote %d rounds to %s\n", len(f.Rounds), exportOut)
		return nil
	},
}

func fromLedger(dbPath, runID string) (*replay.Fixture, error) {
	store, err := state.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	if runID == "" {
		latest, err := store.LatestRun()
		if err != nil {
			return nil, fmt.Errorf("latest run: %w", err)
		}
		runID = latest.RunID
	}
	return replay.FromLedger(store, runID)
}

// #endregion ledger

func init() {
	for _, c := range []*cobra.Command{ledgerCmd, exportCmd} {
		c.Flags().StringVar(&ledgerDB, "db", "rednote.db", "ledger database")
		c.Flags().StringVar(&ledgerRun, "run", "", "run id (defaults to the latest run)")
	}
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "fixture path")
	_ = exportCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(runCmd, ledgerCmd, exportCmd)
}

// #region output

func replayFixture(ctx context.Context, f *replay.Fixture) error {
	results := replay.Replay(ctx, f.Question, f.ToRounds(), f.Config.ToReplayConfig())
	if printComparison(results, f.Expected()) > 0 {
		return errDiverged
	}
	return nil
}

// printComparison renders expected vs replayed decisions and returns the
// number of rounds that diverge.
func printComparison(results []replay.ReplayResult, expected []string) int {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Iteration", "Expected", "Replayed", "Match", "Reason"})

	total := min(len(results), len(expected))
	matches := 0
	for i := 0; i < total; i++ {
		match := "DIFF"
		if results[i].Action == expected[i] {
			match = "OK"
			matches++
		}
		t.AppendRow(table.Row{results[i].Iteration, expected[i], results[i].Action, match, results[i].Reason})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	s := replay.Summarize(results)
	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge | accepted=%d fast_rejects=%d semantic_rejects=%d fallbacks=%d\n",
		total, matches, diverge, s.Accepted, s.FastRejects, s.SemanticRejects, s.Fallbacks)
	return diverge
}

// #endregion output
