// Command inspect prints runs, iterations and verdict provenance from the
// run ledger.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/VamLeovr/rednote-mind-skills/internal/logging"
	"github.com/VamLeovr/rednote-mind-skills/internal/render"
	"github.com/VamLeovr/rednote-mind-skills/internal/state"
)

var (
	dbPath  string
	last    int
	runID   string
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:          "inspect [--db PATH] [--last N | --run ID] [--json]",
	Short:        "inspect shows what the retrieval loop did.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()

		if runID != "" {
			return runDetailMode(store, runID)
		}
		return runListMode(store, last)
	},
}

func init() {
	rootCmd.Flags().StringVar(&dbPath, "db", envOr("REDNOTE_DB", "rednote.db"), "ledger database")
	rootCmd.Flags().IntVar(&last, "last", 20, "show N most recent runs")
	rootCmd.Flags().StringVar(&runID, "run", "", "show a single run in detail")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of a table")
}

// #region main

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID      string `json:"run_id"`
	Question   string `json:"question"`
	State      string `json:"state"`
	Iterations int    `json:"iterations"`
	FinalLimit int    `json:"final_limit"`
	Notes      int    `json:"notes"`
	Failed     int    `json:"failed"`
	StartedAt  string `json:"started_at"`
	Duration   string `json:"duration,omitempty"`
}

func runListMode(store *state.Store, n int) error {
	runs, err := store.ListRuns(n)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[i] = listRow{
			RunID:      r.RunID,
			Question:   r.Question,
			State:      stateOf(r),
			Iterations: r.Iterations,
			FinalLimit: r.FinalLimit,
			Notes:      r.SuccessCount,
			Failed:     r.FailedCount,
			StartedAt:  r.StartedAt.Local().Format(time.DateTime),
		}
		if r.FinishedAt != nil {
			rows[i].Duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Run", "Started", "Question", "State", "Iter", "Limit", "Notes", "Failed", "Took"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.RunID[:8], r.StartedAt, render.Truncate(r.Question, 30), r.State, r.Iterations, r.FinalLimit, r.Notes, r.Failed, r.Duration})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func stateOf(r state.RunRecord) string {
	if !r.Finished() {
		return "running"
	}
	return r.State
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Run        listRow                   `json:"run"`
	Keyword    string                    `json:"keyword"`
	Reason     string                    `json:"reason"`
	Iterations []iterationOutput         `json:"iterations"`
	Decisions  []logging.ProvenanceEntry `json:"decisions"`
	Errors     []string                  `json:"errors,omitempty"`
}

type iterationOutput struct {
	Iteration int    `json:"iteration"`
	Limit     int    `json:"limit"`
	Found     int    `json:"found"`
	OK        int    `json:"ok"`
	Failed    int    `json:"failed"`
	Decision  string `json:"decision"`
	NextLimit int    `json:"next_limit"`
	Duration  string `json:"duration"`
}

func runDetailMode(store *state.Store, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	iters, err := store.ListIterations(id)
	if err != nil {
		return err
	}
	decisions, err := logging.ListDecisions(store.DB(), id)
	if err != nil {
		return err
	}
	fetchErrs, err := store.ListFetchErrors(id)
	if err != nil {
		return err
	}

	out := detailOutput{
		Run: listRow{
			RunID:      run.RunID,
			Question:   run.Question,
			State:      stateOf(run),
			Iterations: run.Iterations,
			FinalLimit: run.FinalLimit,
			Notes:      run.SuccessCount,
			Failed:     run.FailedCount,
			StartedAt:  run.StartedAt.Local().Format(time.DateTime),
		},
		Keyword:   run.Keyword,
		Reason:    run.Reason,
		Decisions: decisions,
	}
	for _, it := range iters {
		out.Iterations = append(out.Iterations, iterationOutput{
			Iteration: it.Iteration,
			Limit:     it.Limit,
			Found:     it.SearchCount,
			OK:        it.SuccessCount,
			Failed:    it.FailedCount,
			Decision:  it.Decision,
			NextLimit: it.NextLimit,
			Duration:  it.Duration.Round(time.Millisecond).String(),
		})
	}
	for _, e := range fetchErrs {
		out.Errors = append(out.Errors, e.URL+": "+e.Reason)
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Run:      %s\n", out.Run.RunID)
	fmt.Printf("Question: %s\n", out.Run.Question)
	fmt.Printf("Keyword:  %s\n", out.Keyword)
	fmt.Printf("Started:  %s\n", out.Run.StartedAt)
	fmt.Printf("State:    %s\n", out.Run.State)
	fmt.Printf("Reason:   %s\n\n", out.Reason)

	it := table.NewWriter()
	it.SetOutputMirror(os.Stdout)
	it.SetTitle("Iterations")
	it.AppendHeader(table.Row{"#", "Limit", "Found", "OK", "Failed", "Decision", "Next", "Took"})
	for _, r := range out.Iterations {
		it.AppendRow(table.Row{r.Iteration, r.Limit, r.Found, r.OK, r.Failed, r.Decision, r.NextLimit, r.Duration})
	}
	it.SetStyle(table.StyleRounded)
	it.Render()

	dt := table.NewWriter()
	dt.SetOutputMirror(os.Stdout)
	dt.SetTitle("Decisions")
	dt.AppendHeader(table.Row{"#", "Stage", "Provenance", "Decision", "Reason"})
	for _, d := range decisions {
		dt.AppendRow(table.Row{d.Iteration, d.Stage, d.Provenance, d.Decision, render.Truncate(d.Reason, 60)})
	}
	dt.SetStyle(table.StyleRounded)
	dt.Render()

	if len(out.Errors) > 0 {
		fmt.Printf("\nFetch errors:\n")
		for _, e := range out.Errors {
			fmt.Printf("  %s\n", e)
		}
	}
	return nil
}

// #endregion detail-mode

// #region helpers

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
