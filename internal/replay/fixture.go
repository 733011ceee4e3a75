package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/gate"
	"github.com/VamLeovr/rednote-mind-skills/internal/judge"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string         `json:"description"`
	Question    string         `json:"question"`
	Keyword     string         `json:"keyword,omitempty"`
	Config      FixtureConfig  `json:"config"`
	Rounds      []FixtureRound `json:"rounds"`
}

// FixtureConfig carries the thresholds active when the run was recorded.
// Missing sections fall back to defaults.
type FixtureConfig struct {
	Gate  *gate.GateConfig `json:"gate,omitempty"`
	Judge *judge.Config    `json:"judge,omitempty"`
}

// FixtureRound is one recorded pass with the decision the run took.
type FixtureRound struct {
	Iteration   int           `json:"iteration"`
	Notes       []corpus.Note `json:"notes"`
	LLMResponse string        `json:"llm_response,omitempty"`
	LLMError    string        `json:"llm_error,omitempty"`
	Expected    string        `json:"expected"` // accepted | widen
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToRounds converts the fixture rounds for Replay.
func (f *Fixture) ToRounds() []Round {
	rounds := make([]Round, len(f.Rounds))
	for i, r := range f.Rounds {
		rounds[i] = Round{
			Iteration:   r.Iteration,
			Notes:       r.Notes,
			LLMResponse: r.LLMResponse,
			LLMError:    r.LLMError,
		}
	}
	return rounds
}

// Expected returns the recorded decision per round.
func (f *Fixture) Expected() []string {
	out := make([]string, len(f.Rounds))
	for i, r := range f.Rounds {
		out[i] = r.Expected
	}
	return out
}

// ToReplayConfig resolves the fixture config against the defaults.
func (fc FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if fc.Gate != nil {
		cfg.Gate = *fc.Gate
	}
	if fc.Judge != nil {
		cfg.Judge = *fc.Judge
	}
	return cfg
}

// #endregion fixture-loader
