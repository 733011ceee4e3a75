package state

import (
	"fmt"
	"log/slog"

	"github.com/VamLeovr/rednote-mind-skills/internal/logging"
	"github.com/VamLeovr/rednote-mind-skills/internal/orchestrator"
)

// RunRecorder writes one run's iterations and outcome to the ledger.
// It implements orchestrator.Recorder.
type RunRecorder struct {
	store  *Store
	run    RunRecord
	logger *slog.Logger
}

var _ orchestrator.Recorder = (*RunRecorder)(nil)

// NewRunRecorder opens a new run in store.
func NewRunRecorder(store *Store, question, keyword string, config any, logger *slog.Logger) (*RunRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	run, err := store.CreateRun(question, keyword, config)
	if err != nil {
		return nil, err
	}
	logger.Debug("state: run opened", "run", run.RunID)
	return &RunRecorder{store: store, run: run, logger: logger}, nil
}

// RunID returns the ledger id of the run being recorded.
func (r *RunRecorder) RunID() string {
	return r.run.RunID
}

// RecordIteration stores the pass and one provenance row per verdict.
func (r *RunRecorder) RecordIteration(rec orchestrator.IterationRecord) error {
	if err := r.store.AppendIteration(r.run.RunID, rec); err != nil {
		return err
	}
	if rec.Fast != nil {
		if err := r.logVerdict(rec.Iteration, logging.StageFastGate, rec); err != nil {
			return err
		}
	}
	if rec.Semantic != nil {
		if err := r.logVerdict(rec.Iteration, logging.StageSemantic, rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordOutcome closes the run.
func (r *RunRecorder) RecordOutcome(out orchestrator.Outcome) error {
	if err := r.store.FinishRun(r.run.RunID, out); err != nil {
		return err
	}
	return logging.LogDecision(r.store.DB(), logging.ProvenanceEntry{
		RunID:     r.run.RunID,
		Iteration: len(out.Iterations),
		Stage:     logging.StageOutcome,
		Decision:  string(out.State),
		Reason:    out.Reason,
	})
}

func (r *RunRecorder) logVerdict(iteration int, stage string, rec orchestrator.IterationRecord) error {
	v := rec.Fast
	if stage == logging.StageSemantic {
		v = rec.Semantic
	}
	entry, err := logging.VerdictEntry(r.run.RunID, iteration, stage, *v)
	if err != nil {
		return fmt.Errorf("%s verdict: %w", stage, err)
	}
	return logging.LogDecision(r.store.DB(), entry)
}
