package orchestrator

// #region imports
import (
	"context"
	"errors"
	"time"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/gate"
	"github.com/VamLeovr/rednote-mind-skills/internal/websearch"
)

// #endregion

// #region errors

// ErrInvalidConfig marks caller misconfiguration, the only error Run returns.
var ErrInvalidConfig = errors.New("invalid retrieval config")

// #endregion

// #region state

// State names a step of the retrieval loop.
type State string

const (
	StateSearching     State = "searching"
	StateFastCheck     State = "fast_check"
	StateSemanticCheck State = "semantic_check"
	StateAccepted      State = "accepted"
	StateWiden         State = "widen"
	StateExhausted     State = "exhausted"
	StateAborted       State = "aborted"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateExhausted || s == StateAborted
}

// #endregion

// #region collaborators

// Acquirer fetches full notes for a list of URLs.
type Acquirer interface {
	Fetch(ctx context.Context, urls []string, includeImages bool) corpus.BatchResult
}

// FastGate is the deterministic pre-filter.
type FastGate interface {
	Evaluate(notes []corpus.Note) gate.GateDecision
}

// SemanticJudge is the LLM-backed sufficiency check.
type SemanticJudge interface {
	Evaluate(ctx context.Context, question string, notes []corpus.Note) (corpus.Verdict, error)
}

// Searcher is the search collaborator.
type Searcher = websearch.Provider

// Recorder receives iteration and outcome records. Errors are logged, never fatal.
type Recorder interface {
	RecordIteration(rec IterationRecord) error
	RecordOutcome(out Outcome) error
}

// #endregion

// #region config

// Config holds the breadth schedule and search parameters.
type Config struct {
	InitialLimit  int    `yaml:"initial_limit" json:"initial_limit"`
	MaxLimit      int    `yaml:"max_limit" json:"max_limit"`
	Increment     int    `yaml:"increment" json:"increment"`
	MinLikes      int    `yaml:"min_likes" json:"min_likes"`
	SortMode      string `yaml:"sort_mode" json:"sort_mode"`
	IncludeImages bool   `yaml:"include_images" json:"include_images"`
}

// DefaultConfig starts at 5 results and widens by 5 up to 30.
func DefaultConfig() Config {
	return Config{
		InitialLimit:  5,
		MaxLimit:      30,
		Increment:     5,
		MinLikes:      20,
		SortMode:      websearch.SortPopular,
		IncludeImages: true,
	}
}

// #endregion

// #region records

// RetrievalState is the mutable state of one Run call.
type RetrievalState struct {
	CurrentLimit  int
	Iteration     int
	MaxIterations int
	Retained      corpus.BatchResult
}

// IterationRecord captures what happened in one pass of the loop.
type IterationRecord struct {
	Iteration    int             `json:"iteration"`
	Limit        int             `json:"limit"`
	SearchCount  int             `json:"search_count"`
	SuccessCount int             `json:"success_count"`
	FailedCount  int             `json:"failed_count"`
	Fast         *corpus.Verdict `json:"fast,omitempty"`
	Semantic     *corpus.Verdict `json:"semantic,omitempty"`
	Notes        []corpus.Note   `json:"-"`        // batch the verdicts were computed on
	Decision     State           `json:"decision"` // accepted | widen | aborted
	NextLimit    int             `json:"next_limit"`
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration"`
}

// Outcome is the result of a Run.
type Outcome struct {
	Question   string             `json:"question"`
	Keyword    string             `json:"keyword"`
	State      State              `json:"state"`
	Reason     string             `json:"reason"`
	Batch      corpus.BatchResult `json:"batch"`
	Iterations []IterationRecord  `json:"iterations"`
	FinalLimit int                `json:"final_limit"`
}

// #endregion
