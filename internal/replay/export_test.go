package replay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/gate"
	"github.com/VamLeovr/rednote-mind-skills/internal/orchestrator"
	"github.com/VamLeovr/rednote-mind-skills/internal/state"
)

func TestFromLedger(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	cfg := map[string]any{"gate": gate.DefaultGateConfig()}
	run, err := store.CreateRun("q", "k", cfg)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	g := gate.NewGate(gate.DefaultGateConfig())
	few := makeNotes(2, 600, 2)
	enough := makeNotes(5, 300, 5)
	fail := g.Evaluate(few).Verdict()
	pass := g.Evaluate(enough).Verdict()
	fallback := corpus.Verdict{IsSufficient: false, Provenance: corpus.ProvenanceFallback}
	llm := corpus.Verdict{IsSufficient: true, Provenance: corpus.ProvenanceLLM, RawResponse: `{"isSufficient": true}`}

	recs := []orchestrator.IterationRecord{
		{Iteration: 1, Limit: 5, Fast: &fail, Notes: few, Decision: orchestrator.StateWiden},
		{Iteration: 2, Limit: 10, Fast: &pass, Semantic: &fallback, Notes: enough, Decision: orchestrator.StateWiden},
		{Iteration: 3, Limit: 15, Fast: &pass, Semantic: &llm, Notes: enough, Decision: orchestrator.StateAccepted},
		{Iteration: 4, Limit: 20, Decision: orchestrator.StateAborted},
	}
	for _, r := range recs {
		r.StartedAt = time.Now().UTC()
		if err := store.AppendIteration(run.RunID, r); err != nil {
			t.Fatalf("AppendIteration: %v", err)
		}
	}

	f, err := FromLedger(store, run.RunID)
	if err != nil {
		t.Fatalf("FromLedger: %v", err)
	}
	if len(f.Rounds) != 3 {
		t.Fatalf("expected 3 gated rounds, got %d", len(f.Rounds))
	}
	if f.Config.Gate == nil || f.Config.Gate.MinNotes != 5 {
		t.Errorf("gate config not carried over: %+v", f.Config.Gate)
	}
	if f.Rounds[1].LLMError == "" {
		t.Error("fallback verdict should replay as a judge failure")
	}
	if f.Rounds[2].LLMResponse != llm.RawResponse {
		t.Errorf("transcript not carried over: %q", f.Rounds[2].LLMResponse)
	}

	results := Replay(context.Background(), f.Question, f.ToRounds(), f.Config.ToReplayConfig())
	for i, want := range f.Expected() {
		if results[i].Action != want {
			t.Errorf("round %d: expected %s, got %s", i+1, want, results[i].Action)
		}
	}
}

func TestFromLedger_NoGatedRounds(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	run, _ := store.CreateRun("q", "k", nil)
	if _, err := FromLedger(store, run.RunID); err == nil {
		t.Fatal("expected error for run without gated iterations")
	}
	if _, err := FromLedger(store, "missing"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
