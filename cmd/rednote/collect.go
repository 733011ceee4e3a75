package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/VamLeovr/rednote-mind-skills/internal/gate"
	"github.com/VamLeovr/rednote-mind-skills/internal/judge"
	"github.com/VamLeovr/rednote-mind-skills/internal/metrics"
	"github.com/VamLeovr/rednote-mind-skills/internal/orchestrator"
	"github.com/VamLeovr/rednote-mind-skills/internal/render"
	"github.com/VamLeovr/rednote-mind-skills/internal/state"
)

var (
	collectQuestion   string
	collectKeyword    string
	collectTopic      string
	collectOut        string
	collectMetricsOut string
	collectNoImage    bool
)

func init() {
	f := collectCmd.Flags()
	f.StringVarP(&collectQuestion, "question", "q", "", "question the notes should answer")
	f.StringVarP(&collectKeyword, "keyword", "k", "", "search keyword (defaults to the question)")
	f.StringVar(&collectTopic, "topic", "", "article title (defaults to the question)")
	f.StringVarP(&collectOut, "out", "o", "", "Markdown path (defaults to <output.dir>/<run id>.md)")
	f.StringVar(&collectMetricsOut, "metrics-out", "", "Prometheus textfile (defaults to output.metrics_file)")
	f.BoolVar(&collectNoImage, "no-images", false, "skip image download")
	f.Int("initial", 0, "initial search breadth (overrides retrieval.initial_limit)")
	f.Int("max", 0, "maximum search breadth (overrides retrieval.max_limit)")
	f.Int("increment", 0, "breadth step per widening (overrides retrieval.increment)")
	f.Int("min-likes", -1, "minimum likes per result (overrides retrieval.min_likes)")
	rootCmd.AddCommand(collectCmd)
}

// applyCollectFlags folds explicitly set breadth flags into cfg.Retrieval.
func applyCollectFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	for name, dst := range map[string]*int{
		"initial":   &cfg.Retrieval.InitialLimit,
		"max":       &cfg.Retrieval.MaxLimit,
		"increment": &cfg.Retrieval.Increment,
		"min-likes": &cfg.Retrieval.MinLikes,
	} {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if collectNoImage {
		cfg.Retrieval.IncludeImages = false
	}
	if collectMetricsOut != "" {
		cfg.Output.MetricsFile = collectMetricsOut
	}
	return cfg.Validate()
}

var collectCmd = &cobra.Command{
	Use:   "collect --question Q [--keyword K] [--out FILE]",
	Short: "Runs the widening retrieval loop and writes the Markdown artifact.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		question := collectQuestion
		if question == "" && len(args) == 1 {
			question = args[0]
		}
		question = strings.TrimSpace(question)
		if question == "" {
			return fmt.Errorf("--question is required")
		}
		keyword := collectKeyword
		if keyword == "" {
			keyword = question
		}
		if err := applyCollectFlags(cmd); err != nil {
			return err
		}

		store, err := state.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer store.Close()

		s, err := openSite(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		backend, closer, err := newLLM()
		if err != nil {
			return err
		}
		defer closer.Close()

		m := metrics.New()
		ctrl := orchestrator.NewController(
			s.searcher,
			newExecutor(s, m),
			gate.NewGate(cfg.Gate),
			judge.New(backend, cfg.Judge, logger),
			cfg.Retrieval,
			logger,
		)

		rec, err := state.NewRunRecorder(store, question, keyword, cfg, logger)
		if err != nil {
			return err
		}
		ctrl.AddRecorder(rec)
		ctrl.AddRecorder(m)

		out, err := ctrl.Run(ctx, question, keyword)
		if err != nil {
			return err
		}
		logger.Info("run finished", "run_id", rec.RunID(), "state", out.State, "notes", len(out.Batch.Notes), "reason", out.Reason)

		if err := writeArtifacts(rec.RunID(), question, out); err != nil {
			return err
		}
		if cfg.Output.MetricsFile != "" {
			if err := m.WriteTextfile(cfg.Output.MetricsFile); err != nil {
				logger.Warn("write metrics", "path", cfg.Output.MetricsFile, "err", err)
			}
		}

		printOutcome(rec.RunID(), out)
		return nil
	},
}

// writeArtifacts stores the outcome JSON and, when notes were retained,
// the Markdown article.
func writeArtifacts(runID, question string, out orchestrator.Outcome) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	jsonPath := filepath.Join(cfg.Output.Dir, runID+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	if len(out.Batch.Notes) == 0 {
		return nil
	}
	topic := collectTopic
	if topic == "" {
		topic = question
	}
	mdPath := collectOut
	if mdPath == "" {
		mdPath = filepath.Join(cfg.Output.Dir, runID+".md")
	}
	opts := render.DefaultOptions()
	opts.ImageRoot = cfg.Storage.ImageDir
	opts.OutputDir = filepath.Dir(mdPath)
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create article dir: %w", err)
	}
	if err := os.WriteFile(mdPath, []byte(render.Markdown(topic, out.Batch.Notes, opts)), 0o644); err != nil {
		return fmt.Errorf("write article: %w", err)
	}
	logger.Info("article written", "path", mdPath)
	return nil
}

func printOutcome(runID string, out orchestrator.Outcome) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("run %s: %s", runID, out.State))
	t.AppendHeader(table.Row{"#", "Limit", "Found", "OK", "Failed", "Fast", "Semantic", "Decision"})
	for _, it := range out.Iterations {
		fast, sem := "-", "-"
		if it.Fast != nil {
			fast = fmt.Sprintf("%t", it.Fast.IsSufficient)
		}
		if it.Semantic != nil {
			sem = fmt.Sprintf("%t (%s)", it.Semantic.IsSufficient, it.Semantic.Provenance)
		}
		t.AppendRow(table.Row{it.Iteration, it.Limit, it.SearchCount, it.SuccessCount, it.FailedCount, fast, sem, it.Decision})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "notes", len(out.Batch.Notes)})
	t.SetStyle(table.StyleRounded)
	t.Render()
	fmt.Println(out.Reason)
}
