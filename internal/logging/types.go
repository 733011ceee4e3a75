package logging

import "time"

// #region stages

// Stages of a retrieval iteration that produce a provenance row.
const (
	StageFastGate = "fast_gate"
	StageSemantic = "semantic"
	StageOutcome  = "outcome"
)

// #endregion stages

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	RunID       string
	Iteration   int
	Stage       string // fast_gate | semantic | outcome
	Provenance  string // verdict provenance, empty for outcome rows
	Decision    string // "pass" | "fail" | "sufficient" | "insufficient" | terminal state
	Reason      string
	VerdictJSON string
	Transcript  string // raw LLM response, if any
	CreatedAt   time.Time
}

// #endregion provenance-entry
