package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/orchestrator"
)

func TestFetchAndTierCounters(t *testing.T) {
	c := New()
	c.FetchOutcome(true)
	c.FetchOutcome(true)
	c.FetchOutcome(false)
	c.CompressTier(1)
	c.CompressTier(0)
	c.CompressTier(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.fetches.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.tiers.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tiers.WithLabelValues("0")))
}

func TestRecorderCounters(t *testing.T) {
	c := New()
	fast := corpus.Verdict{IsSufficient: true, Provenance: corpus.ProvenanceFastGate}
	sem := corpus.Verdict{IsSufficient: false, Provenance: corpus.ProvenanceLLM}

	require.NoError(t, c.RecordIteration(orchestrator.IterationRecord{Decision: orchestrator.StateWiden, Fast: &fast, Semantic: &sem}))
	require.NoError(t, c.RecordIteration(orchestrator.IterationRecord{Decision: orchestrator.StateAborted}))
	require.NoError(t, c.RecordOutcome(orchestrator.Outcome{
		State: orchestrator.StateExhausted,
		Batch: corpus.BatchResult{Notes: make([]corpus.Note, 7)},
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.iterations.WithLabelValues("widen")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.iterations.WithLabelValues("aborted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.verdicts.WithLabelValues("fast_gate", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.verdicts.WithLabelValues("llm", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("exhausted")))
	n, err := testutil.GatherAndCount(c.registry)
	require.NoError(t, err)
	assert.Equal(t, 6, n, "2 iterations, 2 verdicts, 1 run, 1 histogram")
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.FetchOutcome(true)

	path := filepath.Join(t.TempDir(), "rednote.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `rednote_fetches_total{outcome="success"} 1`)
}
