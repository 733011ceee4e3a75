package state

import (
	"time"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

// #region run-record
// RunRecord is one retrieval run in the ledger.
type RunRecord struct {
	RunID        string
	Question     string
	Keyword      string
	ConfigJSON   string
	State        string // empty while the run is in progress
	Reason       string
	FinalLimit   int
	Iterations   int
	SuccessCount int
	FailedCount  int
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Finished reports whether the run reached a terminal state.
func (r RunRecord) Finished() bool {
	return r.FinishedAt != nil
}

// #endregion run-record

// #region iteration-row
// IterationRow is one pass of the retrieval loop as stored.
type IterationRow struct {
	RunID        string
	Iteration    int
	Limit        int
	SearchCount  int
	SuccessCount int
	FailedCount  int
	Decision     string
	NextLimit    int
	Fast         *corpus.Verdict
	Semantic     *corpus.Verdict
	Notes        []corpus.Note
	StartedAt    time.Time
	Duration     time.Duration
}

// #endregion iteration-row
