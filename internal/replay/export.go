package replay

import (
	"encoding/json"
	"fmt"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/orchestrator"
	"github.com/VamLeovr/rednote-mind-skills/internal/state"
)

// recordedJudgeFailure stands in for the transport error of a fallback verdict.
const recordedJudgeFailure = "recorded judge failure"

// FromLedger builds a fixture from a stored run. Passes that never reached
// the gates (aborted searches) are skipped.
func FromLedger(store *state.Store, runID string) (*Fixture, error) {
	run, err := store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	iterations, err := store.ListIterations(runID)
	if err != nil {
		return nil, err
	}

	f := &Fixture{
		Description: fmt.Sprintf("exported from run %s (%s)", run.RunID, run.State),
		Question:    run.Question,
		Keyword:     run.Keyword,
	}
	if run.ConfigJSON != "" {
		// Runs may record any config shape; only gate and judge sections matter.
		_ = json.Unmarshal([]byte(run.ConfigJSON), &f.Config)
	}

	for _, it := range iterations {
		if it.Fast == nil {
			continue
		}
		round := FixtureRound{
			Iteration: it.Iteration,
			Notes:     it.Notes,
			Expected:  it.Decision,
		}
		if it.Semantic != nil {
			if it.Semantic.Provenance == corpus.ProvenanceFallback {
				round.LLMError = recordedJudgeFailure
			} else {
				round.LLMResponse = it.Semantic.RawResponse
			}
		}
		if round.Expected != string(orchestrator.StateAccepted) {
			round.Expected = string(orchestrator.StateWiden)
		}
		f.Rounds = append(f.Rounds, round)
	}
	if len(f.Rounds) == 0 {
		return nil, fmt.Errorf("run %s has no gated iterations", runID)
	}
	return f, nil
}
