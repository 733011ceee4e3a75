package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/gate"
	"github.com/VamLeovr/rednote-mind-skills/internal/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region fakes

type searchCall struct {
	limit    int
	sort     string
	minLikes int
}

type fakeSearch struct {
	available int // total hits the site has for the keyword
	err       error
	calls     []searchCall
}

func (f *fakeSearch) Search(_ context.Context, _ string, limit int, sortMode string, minLikes int) ([]websearch.Result, error) {
	f.calls = append(f.calls, searchCall{limit, sortMode, minLikes})
	if f.err != nil {
		return nil, f.err
	}
	n := f.available
	out := make([]websearch.Result, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("n%02d", i)
		out = append(out, websearch.Result{NoteID: id, URL: "https://site/explore/" + id, Likes: 100 - i})
	}
	return out, nil // deliberately untruncated
}

// fakeAcquirer builds notes from URLs; illustrated controls how many carry images.
type fakeAcquirer struct {
	chars       int
	illustrated func(n int) int
	batches     [][]string
}

func (f *fakeAcquirer) Fetch(_ context.Context, urls []string, _ bool) corpus.BatchResult {
	f.batches = append(f.batches, urls)
	res := corpus.BatchResult{Notes: []corpus.Note{}}
	withImages := len(urls)
	if f.illustrated != nil {
		withImages = f.illustrated(len(urls))
	}
	for i, u := range urls {
		n := corpus.Note{URL: u, NoteID: u[strings.LastIndex(u, "/")+1:], Content: strings.Repeat("字", f.chars)}
		if i < withImages {
			n.Images = []corpus.ImageAsset{{Source: "img"}}
		}
		res.AddNote(n)
	}
	return res
}

type fakeJudge struct {
	verdicts []corpus.Verdict // returned in order; last one repeats
	err      error
	calls    int
}

func (f *fakeJudge) Evaluate(_ context.Context, _ string, _ []corpus.Note) (corpus.Verdict, error) {
	f.calls++
	if f.err != nil {
		return corpus.Verdict{}, f.err
	}
	i := min(f.calls-1, len(f.verdicts)-1)
	return f.verdicts[i], nil
}

type memRecorder struct {
	iterations []IterationRecord
	outcomes   []Outcome
}

func (m *memRecorder) RecordIteration(rec IterationRecord) error {
	m.iterations = append(m.iterations, rec)
	return nil
}

func (m *memRecorder) RecordOutcome(out Outcome) error {
	m.outcomes = append(m.outcomes, out)
	return nil
}

func sufficient(ok bool) corpus.Verdict {
	return corpus.Verdict{IsSufficient: ok, Reason: fmt.Sprintf("sufficient=%v", ok), Provenance: corpus.ProvenanceLLM}
}

func newController(s *fakeSearch, a *fakeAcquirer, j *fakeJudge) *Controller {
	return NewController(s, a, gate.NewGate(gate.DefaultGateConfig()), j, DefaultConfig(), nil)
}

// #endregion

// #region scenario-tests

func TestRunEmptySearchAbortsWithoutRetry(t *testing.T) {
	s := &fakeSearch{available: 0}
	a := &fakeAcquirer{chars: 300}
	j := &fakeJudge{verdicts: []corpus.Verdict{sufficient(true)}}

	out, err := newController(s, a, j).Run(context.Background(), "q", "扩展坞")

	require.NoError(t, err)
	assert.Equal(t, StateAborted, out.State)
	assert.Empty(t, out.Batch.Notes)
	assert.Len(t, s.calls, 1, "no second search after an empty result")
	assert.Empty(t, a.batches)
	assert.Zero(t, j.calls)
}

func TestRunAcceptsFirstSufficientBatch(t *testing.T) {
	s := &fakeSearch{available: 50}
	a := &fakeAcquirer{chars: 240, illustrated: func(n int) int { return 3 }}
	j := &fakeJudge{verdicts: []corpus.Verdict{sufficient(true)}}
	rec := &memRecorder{}
	c := newController(s, a, j)
	c.AddRecorder(rec)

	out, err := c.Run(context.Background(), "q", "kw")

	require.NoError(t, err)
	assert.Equal(t, StateAccepted, out.State)
	assert.Len(t, out.Batch.Notes, 5, "search results are truncated to the limit")
	assert.Equal(t, searchCall{5, websearch.SortPopular, 20}, s.calls[0])
	assert.Equal(t, 1, j.calls)
	require.Len(t, rec.iterations, 1)
	assert.Equal(t, StateAccepted, rec.iterations[0].Decision)
	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, StateAccepted, rec.outcomes[0].State)
}

func TestRunFastGateFailureWidensWithoutJudge(t *testing.T) {
	s := &fakeSearch{available: 50}
	// only one illustrated note per batch: image ratio always fails
	a := &fakeAcquirer{chars: 300, illustrated: func(int) int { return 1 }}
	j := &fakeJudge{verdicts: []corpus.Verdict{sufficient(true)}}

	out, err := newController(s, a, j).Run(context.Background(), "q", "kw")

	require.NoError(t, err)
	assert.Equal(t, StateExhausted, out.State)
	assert.Zero(t, j.calls, "judge must not run when the fast gate fails")
	require.NotEmpty(t, out.Iterations)
	assert.Contains(t, out.Iterations[0].Fast.Reason, "image evidence")
	assert.Equal(t, 10, out.Iterations[0].NextLimit)
	assert.Equal(t, 10, s.calls[1].limit)
}

func TestRunJudgeInsufficientWidensThenAccepts(t *testing.T) {
	s := &fakeSearch{available: 50}
	a := &fakeAcquirer{chars: 300}
	j := &fakeJudge{verdicts: []corpus.Verdict{sufficient(false), sufficient(false), sufficient(true)}}

	out, err := newController(s, a, j).Run(context.Background(), "q", "kw")

	require.NoError(t, err)
	assert.Equal(t, StateAccepted, out.State)
	assert.Len(t, out.Batch.Notes, 15)
	assert.Equal(t, []int{5, 10, 15}, limits(s.calls))
	for _, b := range a.batches {
		assert.Equal(t, "https://site/explore/n00", b[0], "each widening refetches the whole batch")
	}
}

func TestRunJudgeErrorAcceptsCurrentBatch(t *testing.T) {
	s := &fakeSearch{available: 50}
	a := &fakeAcquirer{chars: 300}
	j := &fakeJudge{err: errors.New("llm down")}

	out, err := newController(s, a, j).Run(context.Background(), "q", "kw")

	require.NoError(t, err)
	assert.Equal(t, StateAccepted, out.State)
	assert.Len(t, out.Batch.Notes, 5)
	assert.Contains(t, out.Reason, "llm down")
	assert.Len(t, s.calls, 1)
}

func TestRunExhaustedReturnsLastRetainedBatch(t *testing.T) {
	s := &fakeSearch{available: 50}
	a := &fakeAcquirer{chars: 300}
	j := &fakeJudge{verdicts: []corpus.Verdict{sufficient(false)}}

	out, err := newController(s, a, j).Run(context.Background(), "q", "kw")

	require.NoError(t, err)
	assert.Equal(t, StateExhausted, out.State)
	assert.Len(t, s.calls, 6)
	assert.Len(t, out.Batch.Notes, 30, "retained batch is replaced by the latest, not merged")
	assert.Equal(t, 30, out.FinalLimit)
}

func TestRunSearchErrorAbortsWithRetained(t *testing.T) {
	s := &fakeSearch{err: errors.New("session expired")}
	out, err := newController(s, &fakeAcquirer{}, &fakeJudge{}).Run(context.Background(), "q", "kw")

	require.NoError(t, err)
	assert.Equal(t, StateAborted, out.State)
	assert.Contains(t, out.Reason, "session expired")
	assert.NotNil(t, out.Batch.Notes)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &fakeSearch{available: 10}

	out, err := newController(s, &fakeAcquirer{}, &fakeJudge{}).Run(ctx, "q", "kw")

	require.NoError(t, err)
	assert.Equal(t, StateAborted, out.State)
	assert.Empty(t, s.calls)
}

// #endregion

// #region property-tests

func TestRunLimitMonotoneAndIterationsBounded(t *testing.T) {
	configs := []Config{
		{InitialLimit: 5, MaxLimit: 30, Increment: 5},
		{InitialLimit: 3, MaxLimit: 10, Increment: 4},
		{InitialLimit: 7, MaxLimit: 7, Increment: 2},
		{InitialLimit: 1, MaxLimit: 9, Increment: 3},
	}
	for _, cfg := range configs {
		t.Run(fmt.Sprintf("%d-%d-%d", cfg.InitialLimit, cfg.MaxLimit, cfg.Increment), func(t *testing.T) {
			s := &fakeSearch{available: 100}
			j := &fakeJudge{verdicts: []corpus.Verdict{sufficient(false)}}
			c := NewController(s, &fakeAcquirer{chars: 300}, gate.NewGate(gate.DefaultGateConfig()), j, cfg, nil)

			out, err := c.Run(context.Background(), "q", "kw")
			require.NoError(t, err)

			maxIter := cfg.Policy().MaxIterations()
			assert.Len(t, s.calls, maxIter)
			prev := 0
			for _, call := range s.calls {
				assert.GreaterOrEqual(t, call.limit, prev)
				assert.LessOrEqual(t, call.limit, cfg.MaxLimit)
				prev = call.limit
			}
			assert.LessOrEqual(t, len(out.Iterations), maxIter)
		})
	}
}

func TestRunEmptySortModeSearchesPopular(t *testing.T) {
	s := &fakeSearch{available: 50}
	a := &fakeAcquirer{chars: 240}
	j := &fakeJudge{verdicts: []corpus.Verdict{sufficient(true)}}
	cfg := Config{InitialLimit: 5, MaxLimit: 10, Increment: 5}

	out, err := NewController(s, a, gate.NewGate(gate.DefaultGateConfig()), j, cfg, nil).Run(context.Background(), "q", "kw")

	require.NoError(t, err)
	assert.Equal(t, StateAccepted, out.State)
	require.Len(t, s.calls, 1)
	assert.Equal(t, websearch.SortPopular, s.calls[0].sort)
}

func TestRunRejectsMisconfiguration(t *testing.T) {
	s := &fakeSearch{available: 5}
	tests := []struct {
		name    string
		cfg     Config
		keyword string
	}{
		{"empty keyword", DefaultConfig(), "  "},
		{"zero increment", Config{InitialLimit: 5, MaxLimit: 10}, "kw"},
		{"max below initial", Config{InitialLimit: 10, MaxLimit: 5, Increment: 5}, "kw"},
		{"bad sort", Config{InitialLimit: 5, MaxLimit: 10, Increment: 5, SortMode: "random"}, "kw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(s, &fakeAcquirer{}, gate.NewGate(gate.DefaultGateConfig()), &fakeJudge{}, tt.cfg, nil)
			_, err := c.Run(context.Background(), "q", tt.keyword)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
	assert.Empty(t, s.calls)
}

func limits(calls []searchCall) []int {
	out := make([]int, len(calls))
	for i, c := range calls {
		out[i] = c.limit
	}
	return out
}

// #endregion
