package replay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/gate"
	"github.com/VamLeovr/rednote-mind-skills/internal/judge"
	"github.com/VamLeovr/rednote-mind-skills/internal/orchestrator"
)

// #region types
// Round is one recorded loop pass: the batch the gates saw and what the LLM
// answered for it.
type Round struct {
	Iteration   int
	Notes       []corpus.Note
	LLMResponse string
	LLMError    string // non-empty when the recorded call failed
}

// ReplayConfig bundles the gate and judge settings for a replay run.
type ReplayConfig struct {
	Gate  gate.GateConfig
	Judge judge.Config
}

// DefaultReplayConfig returns the stock gate and judge settings.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Gate:  gate.DefaultGateConfig(),
		Judge: judge.DefaultConfig(),
	}
}

// ReplayResult is the decision reached for one round.
type ReplayResult struct {
	Iteration int
	Action    string // "accepted" | "widen"
	Reason    string

	Fast gate.GateDecision

	// nil when the fast gate failed
	Semantic *corpus.Verdict
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalRounds     int
	Accepted        int
	FastRejects     int
	SemanticRejects int
	Fallbacks       int // verdicts from the keyword or threshold fallback
	FirstAccepted   int // iteration of the first accepted round, 0 if none
}

// #endregion types

// #region replay
// Replay runs every round through the fast gate and, if it passes, through
// the judge with the recorded LLM answer. No network calls are made.
func Replay(ctx context.Context, question string, rounds []Round, config ReplayConfig) []ReplayResult {
	fast := gate.NewGate(config.Gate)
	results := make([]ReplayResult, 0, len(rounds))

	for _, r := range rounds {
		decision := fast.Evaluate(r.Notes)
		if !decision.Passed() {
			results = append(results, ReplayResult{
				Iteration: r.Iteration,
				Action:    string(orchestrator.StateWiden),
				Reason:    decision.Reason,
				Fast:      decision,
			})
			continue
		}

		j := judge.New(scripted{text: r.LLMResponse, err: r.LLMError}, config.Judge, slog.New(slog.DiscardHandler))
		verdict, _ := j.Evaluate(ctx, question, r.Notes)

		action := orchestrator.StateWiden
		if verdict.IsSufficient {
			action = orchestrator.StateAccepted
		}
		results = append(results, ReplayResult{
			Iteration: r.Iteration,
			Action:    string(action),
			Reason:    verdict.Reason,
			Fast:      decision,
			Semantic:  &verdict,
		})
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalRounds: len(results)}
	for _, r := range results {
		switch {
		case r.Semantic == nil:
			s.FastRejects++
		case r.Action == string(orchestrator.StateAccepted):
			s.Accepted++
			if s.FirstAccepted == 0 {
				s.FirstAccepted = r.Iteration
			}
		default:
			s.SemanticRejects++
		}
		if r.Semantic != nil && r.Semantic.Provenance != corpus.ProvenanceLLM {
			s.Fallbacks++
		}
	}
	return s
}

// #endregion replay

// #region scripted-llm
// scripted answers every call with a recorded response.
type scripted struct {
	text string
	err  string
}

func (s scripted) Complete(context.Context, string, string) (string, error) {
	if s.err != "" {
		return "", errors.New(s.err)
	}
	return s.text, nil
}

// #endregion scripted-llm
