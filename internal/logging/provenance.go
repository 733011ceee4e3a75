package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (run_id, iteration, stage, provenance, decision, reason, verdict_json, transcript, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Iteration,
		entry.Stage,
		nullIfEmpty(entry.Provenance),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.VerdictJSON),
		nullIfEmpty(entry.Transcript),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region verdict-entry
// VerdictEntry builds the provenance row for a gate or judge verdict.
func VerdictEntry(runID string, iteration int, stage string, v corpus.Verdict) (ProvenanceEntry, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ProvenanceEntry{}, fmt.Errorf("marshal verdict: %w", err)
	}
	decision := "insufficient"
	if v.IsSufficient {
		decision = "sufficient"
	}
	if stage == StageFastGate {
		decision = "fail"
		if v.IsSufficient {
			decision = "pass"
		}
	}
	return ProvenanceEntry{
		RunID:       runID,
		Iteration:   iteration,
		Stage:       stage,
		Provenance:  string(v.Provenance),
		Decision:    decision,
		Reason:      v.Reason,
		VerdictJSON: string(data),
		Transcript:  v.RawResponse,
	}, nil
}

// #endregion verdict-entry

// #region list
// ListDecisions returns the provenance rows of a run in insertion order.
func ListDecisions(db *sql.DB, runID string) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, iteration, stage, provenance, decision, reason, verdict_json, transcript, created_at
		 FROM provenance_log WHERE run_id = ? ORDER BY id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var prov, reason, verdict, transcript sql.NullString
		var created string
		if err := rows.Scan(&e.RunID, &e.Iteration, &e.Stage, &prov, &e.Decision, &reason, &verdict, &transcript, &created); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.Provenance = prov.String
		e.Reason = reason.String
		e.VerdictJSON = verdict.String
		e.Transcript = transcript.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
