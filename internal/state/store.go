package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/orchestrator"
)

// ErrRunNotFound is returned when a run id is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	question      TEXT NOT NULL,
	keyword       TEXT NOT NULL,
	config_json   TEXT,
	state         TEXT,
	reason        TEXT,
	final_limit   INTEGER NOT NULL DEFAULT 0,
	iterations    INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	failed_count  INTEGER NOT NULL DEFAULT 0,
	started_at    TEXT NOT NULL,
	finished_at   TEXT
);

CREATE TABLE IF NOT EXISTS iterations (
	run_id        TEXT NOT NULL,
	iteration     INTEGER NOT NULL,
	limit_n       INTEGER NOT NULL,
	search_count  INTEGER NOT NULL,
	success_count INTEGER NOT NULL,
	failed_count  INTEGER NOT NULL,
	decision      TEXT NOT NULL,
	next_limit    INTEGER NOT NULL,
	fast_json     TEXT,
	semantic_json TEXT,
	notes_json    TEXT,
	started_at    TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL,
	PRIMARY KEY (run_id, iteration),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS notes (
	run_id        TEXT NOT NULL,
	position      INTEGER NOT NULL,
	note_id       TEXT,
	url           TEXT NOT NULL,
	likes         INTEGER NOT NULL,
	note_json     TEXT NOT NULL,
	PRIMARY KEY (run_id, position),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS fetch_errors (
	run_id        TEXT NOT NULL,
	position      INTEGER NOT NULL,
	url           TEXT NOT NULL,
	reason        TEXT NOT NULL,
	PRIMARY KEY (run_id, position),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	iteration     INTEGER NOT NULL,
	stage         TEXT NOT NULL,
	provenance    TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	verdict_json  TEXT,
	transcript    TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region store-struct
// Store is the SQLite run ledger.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region create-run
// CreateRun inserts a new in-progress run. config is stored as JSON.
func (s *Store) CreateRun(question, keyword string, config any) (RunRecord, error) {
	cfgJSON, err := json.Marshal(config)
	if err != nil {
		return RunRecord{}, fmt.Errorf("marshal config: %w", err)
	}
	rec := RunRecord{
		RunID:      uuid.New().String(),
		Question:   question,
		Keyword:    keyword,
		ConfigJSON: string(cfgJSON),
		StartedAt:  time.Now().UTC(),
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, question, keyword, config_json, started_at) VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.Question, rec.Keyword, rec.ConfigJSON, rec.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// #endregion create-run

// #region append-iteration
// AppendIteration stores one loop pass.
func (s *Store) AppendIteration(runID string, rec orchestrator.IterationRecord) error {
	fastJSON, err := marshalOptional(rec.Fast)
	if err != nil {
		return fmt.Errorf("marshal fast verdict: %w", err)
	}
	semJSON, err := marshalOptional(rec.Semantic)
	if err != nil {
		return fmt.Errorf("marshal semantic verdict: %w", err)
	}
	notesJSON, err := marshalOptional(rec.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO iterations (run_id, iteration, limit_n, search_count, success_count, failed_count,
		 decision, next_limit, fast_json, semantic_json, notes_json, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Iteration, rec.Limit, rec.SearchCount, rec.SuccessCount, rec.FailedCount,
		string(rec.Decision), rec.NextLimit, fastJSON, semJSON, notesJSON,
		rec.StartedAt.Format(timeLayout), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert iteration: %w", err)
	}
	return nil
}

// #endregion append-iteration

// #region finish-run
// FinishRun records the outcome and its retained batch atomically.
func (s *Store) FinishRun(runID string, out orchestrator.Outcome) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE runs SET state = ?, reason = ?, final_limit = ?, iterations = ?, success_count = ?,
		 failed_count = ?, finished_at = ? WHERE run_id = ?`,
		string(out.State), out.Reason, out.FinalLimit, len(out.Iterations),
		out.Batch.SuccessCount, out.Batch.FailedCount, time.Now().UTC().Format(timeLayout), runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish %s: %w", runID, ErrRunNotFound)
	}

	for i, n := range out.Batch.Notes {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal note %d: %w", i, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO notes (run_id, position, note_id, url, likes, note_json) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, i, n.NoteID, n.URL, n.Likes, string(data),
		); err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
	}
	for i, e := range out.Batch.Errors {
		if _, err := tx.Exec(
			`INSERT INTO fetch_errors (run_id, position, url, reason) VALUES (?, ?, ?, ?)`,
			runID, i, e.URL, e.Reason,
		); err != nil {
			return fmt.Errorf("insert fetch error: %w", err)
		}
	}
	return tx.Commit()
}

// #endregion finish-run

// #region get-run
// GetRun retrieves one run by id.
func (s *Store) GetRun(id string) (RunRecord, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rec, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun() (RunRecord, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return RunRecord{}, err
	}
	if len(runs) == 0 {
		return RunRecord{}, ErrRunNotFound
	}
	return runs[0], nil
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-runs

// #region list-iterations
// ListIterations returns the loop passes of a run in order.
func (s *Store) ListIterations(runID string) ([]IterationRow, error) {
	rows, err := s.db.Query(
		`SELECT run_id, iteration, limit_n, search_count, success_count, failed_count, decision,
		 next_limit, fast_json, semantic_json, notes_json, started_at, duration_ms
		 FROM iterations WHERE run_id = ? ORDER BY iteration ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	defer rows.Close()

	var out []IterationRow
	for rows.Next() {
		var it IterationRow
		var fastJSON, semJSON, notesJSON sql.NullString
		var startedStr string
		var durMS int64
		if err := rows.Scan(&it.RunID, &it.Iteration, &it.Limit, &it.SearchCount, &it.SuccessCount,
			&it.FailedCount, &it.Decision, &it.NextLimit, &fastJSON, &semJSON, &notesJSON, &startedStr, &durMS); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		if fastJSON.Valid {
			it.Fast = &corpus.Verdict{}
			if err := json.Unmarshal([]byte(fastJSON.String), it.Fast); err != nil {
				return nil, fmt.Errorf("unmarshal fast verdict: %w", err)
			}
		}
		if semJSON.Valid {
			it.Semantic = &corpus.Verdict{}
			if err := json.Unmarshal([]byte(semJSON.String), it.Semantic); err != nil {
				return nil, fmt.Errorf("unmarshal semantic verdict: %w", err)
			}
		}
		if notesJSON.Valid {
			if err := json.Unmarshal([]byte(notesJSON.String), &it.Notes); err != nil {
				return nil, fmt.Errorf("unmarshal notes: %w", err)
			}
		}
		it.StartedAt, _ = time.Parse(timeLayout, startedStr)
		it.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, it)
	}
	return out, rows.Err()
}

// #endregion list-iterations

// #region list-notes
// ListNotes returns the retained batch of a finished run in batch order.
func (s *Store) ListNotes(runID string) ([]corpus.Note, error) {
	rows, err := s.db.Query(`SELECT note_json FROM notes WHERE run_id = ? ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []corpus.Note
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		var n corpus.Note
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return nil, fmt.Errorf("unmarshal note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListFetchErrors returns the failed URLs of a finished run.
func (s *Store) ListFetchErrors(runID string) ([]corpus.FetchError, error) {
	rows, err := s.db.Query(`SELECT url, reason FROM fetch_errors WHERE run_id = ? ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list fetch errors: %w", err)
	}
	defer rows.Close()

	var out []corpus.FetchError
	for rows.Next() {
		var e corpus.FetchError
		if err := rows.Scan(&e.URL, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan fetch error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-notes

// #region scan-helpers
const runColumns = `run_id, question, keyword, config_json, state, reason, final_limit, iterations,
	success_count, failed_count, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (RunRecord, error) {
	var rec RunRecord
	var cfgJSON, st, reason, finished sql.NullString
	var started string
	if err := r.Scan(&rec.RunID, &rec.Question, &rec.Keyword, &cfgJSON, &st, &reason, &rec.FinalLimit,
		&rec.Iterations, &rec.SuccessCount, &rec.FailedCount, &started, &finished); err != nil {
		return RunRecord{}, err
	}
	rec.ConfigJSON = cfgJSON.String
	rec.State = st.String
	rec.Reason = reason.String
	rec.StartedAt, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err == nil {
			rec.FinishedAt = &t
		}
	}
	return rec, nil
}

// marshalOptional returns nil for nil pointers and empty slices so the
// column stays NULL.
func marshalOptional(v any) (any, error) {
	switch x := v.(type) {
	case *corpus.Verdict:
		if x == nil {
			return nil, nil
		}
	case []corpus.Note:
		if len(x) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// #endregion scan-helpers
