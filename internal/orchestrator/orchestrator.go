package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/websearch"
)

// #endregion

// #region controller-struct

// Controller runs the widening retrieval loop: search, fetch, fast gate,
// semantic judge, then accept or widen.
type Controller struct {
	search    Searcher
	acquirer  Acquirer
	fast      FastGate
	judge     SemanticJudge
	config    Config
	recorders []Recorder
	logger    *slog.Logger
}

// #endregion

// #region constructor

// NewController wires the loop collaborators. An empty sort mode means popular.
func NewController(search Searcher, acquirer Acquirer, fast FastGate, judge SemanticJudge, config Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SortMode == "" {
		config.SortMode = websearch.SortPopular
	}
	return &Controller{
		search:   search,
		acquirer: acquirer,
		fast:     fast,
		judge:    judge,
		config:   config,
		logger:   logger,
	}
}

// AddRecorder attaches a sink for iteration and outcome records.
func (c *Controller) AddRecorder(r Recorder) {
	if r != nil {
		c.recorders = append(c.recorders, r)
	}
}

// #endregion

// #region run

// Run collects a batch that answers question using keyword searches of
// growing breadth. It always returns a batch (possibly empty). The only
// error is ErrInvalidConfig for caller mistakes; search, fetch and judge
// failures become terminal states or verdicts.
func (c *Controller) Run(ctx context.Context, question, keyword string) (Outcome, error) {
	if err := c.validate(keyword); err != nil {
		return Outcome{}, err
	}

	policy := c.config.Policy()
	st := RetrievalState{
		CurrentLimit:  policy.Initial,
		MaxIterations: policy.MaxIterations(),
		Retained:      emptyBatch(),
	}
	out := Outcome{Question: question, Keyword: keyword}

	c.logger.Info("orchestrator: start",
		"keyword", keyword, "initial", policy.Initial, "max", policy.Max,
		"increment", policy.Increment, "max_iterations", st.MaxIterations)

	for st.Iteration < st.MaxIterations {
		if err := ctx.Err(); err != nil {
			return c.finish(out, st, StateAborted, st.Retained, fmt.Sprintf("cancelled: %v", err)), nil
		}
		st.Iteration++
		rec := IterationRecord{Iteration: st.Iteration, Limit: st.CurrentLimit, StartedAt: time.Now().UTC()}

		// Searching
		results, err := c.search.Search(ctx, keyword, st.CurrentLimit, c.config.SortMode, c.config.MinLikes)
		if err != nil {
			rec.Decision = StateAborted
			out = c.record(out, rec)
			c.logger.Error("orchestrator: search failed", "iteration", st.Iteration, "error", err)
			return c.finish(out, st, StateAborted, st.Retained, fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(results) == 0 {
			rec.Decision = StateAborted
			out = c.record(out, rec)
			c.logger.Warn("orchestrator: empty search result", "iteration", st.Iteration, "limit", st.CurrentLimit)
			return c.finish(out, st, StateAborted, emptyBatch(), "no search results for keyword"), nil
		}
		if len(results) > st.CurrentLimit {
			results = results[:st.CurrentLimit]
		}
		rec.SearchCount = len(results)

		batch := c.acquirer.Fetch(ctx, websearch.URLs(results), c.config.IncludeImages)
		rec.SuccessCount, rec.FailedCount = batch.SuccessCount, batch.FailedCount
		rec.Notes = batch.Notes

		// Fast check
		decision := c.fast.Evaluate(batch.Notes)
		fv := decision.Verdict()
		rec.Fast = &fv
		c.logger.Info("orchestrator: fast check",
			"iteration", st.Iteration, "passed", decision.Passed(), "reason", decision.Reason)
		if !decision.Passed() {
			out = c.widen(out, &st, &rec, batch)
			continue
		}

		// Semantic check
		verdict, err := c.judge.Evaluate(ctx, question, batch.Notes)
		if err != nil {
			rec.Decision = StateAccepted
			out = c.record(out, rec)
			c.logger.Error("orchestrator: judge failed, accepting current batch", "iteration", st.Iteration, "error", err)
			return c.finish(out, st, StateAccepted, batch, fmt.Sprintf("judge unavailable: %v", err)), nil
		}
		rec.Semantic = &verdict
		if verdict.IsSufficient {
			rec.Decision = StateAccepted
			out = c.record(out, rec)
			return c.finish(out, st, StateAccepted, batch, verdict.Reason), nil
		}
		out = c.widen(out, &st, &rec, batch)
	}

	return c.finish(out, st, StateExhausted, st.Retained, "iteration budget exhausted"), nil
}

// #endregion

// #region helpers

func (c *Controller) validate(keyword string) error {
	if strings.TrimSpace(keyword) == "" {
		return fmt.Errorf("%w: empty keyword", ErrInvalidConfig)
	}
	if c.search == nil || c.acquirer == nil || c.fast == nil || c.judge == nil {
		return fmt.Errorf("%w: missing collaborator", ErrInvalidConfig)
	}
	if !websearch.ValidSortMode(c.config.SortMode) {
		return fmt.Errorf("%w: unknown sort mode %q", ErrInvalidConfig, c.config.SortMode)
	}
	return c.config.Policy().Validate()
}

// widen retains batch as the current best, replacing the previous one,
// and grows the limit for the next iteration.
func (c *Controller) widen(out Outcome, st *RetrievalState, rec *IterationRecord, batch corpus.BatchResult) Outcome {
	st.Retained = batch
	next := c.config.Policy().Next(st.CurrentLimit)
	rec.Decision = StateWiden
	rec.NextLimit = next
	c.logger.Info("orchestrator: widen", "iteration", st.Iteration, "limit", st.CurrentLimit, "next", next)
	st.CurrentLimit = next
	return c.record(out, *rec)
}

func (c *Controller) record(out Outcome, rec IterationRecord) Outcome {
	rec.Duration = time.Since(rec.StartedAt)
	out.Iterations = append(out.Iterations, rec)
	for _, r := range c.recorders {
		if err := r.RecordIteration(rec); err != nil {
			c.logger.Warn("orchestrator: record iteration failed", "error", err)
		}
	}
	return out
}

func (c *Controller) finish(out Outcome, st RetrievalState, terminal State, batch corpus.BatchResult, reason string) Outcome {
	out.State = terminal
	out.Reason = reason
	out.Batch = batch
	out.FinalLimit = st.CurrentLimit
	c.logger.Info("orchestrator: done",
		"state", terminal, "reason", reason, "iterations", st.Iteration,
		"notes", len(batch.Notes), "failed", batch.FailedCount)
	for _, r := range c.recorders {
		if err := r.RecordOutcome(out); err != nil {
			c.logger.Warn("orchestrator: record outcome failed", "error", err)
		}
	}
	return out
}

func emptyBatch() corpus.BatchResult {
	return corpus.BatchResult{Notes: []corpus.Note{}}
}

// #endregion
