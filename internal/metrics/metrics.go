// Package metrics counts fetch, compression, verdict and run outcomes in a
// private Prometheus registry that can be dumped as a textfile.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/VamLeovr/rednote-mind-skills/internal/batch"
	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/orchestrator"
)

const namespace = "rednote"

// Collector implements batch.Metrics and orchestrator.Recorder.
type Collector struct {
	registry   *prometheus.Registry
	fetches    *prometheus.CounterVec
	tiers      *prometheus.CounterVec
	verdicts   *prometheus.CounterVec
	iterations *prometheus.CounterVec
	runs       *prometheus.CounterVec
	notes      prometheus.Histogram
}

var (
	_ batch.Metrics         = (*Collector)(nil)
	_ orchestrator.Recorder = (*Collector)(nil)
)

// New registers all counters on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Note fetches by outcome.",
		}, []string{"outcome"}),
		tiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compress_tier_total",
			Help:      "Compressed images by ladder tier; 0 = passed through.",
		}, []string{"tier"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Sufficiency verdicts by provenance and result.",
		}, []string{"provenance", "sufficient"}),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Retrieval loop passes by decision.",
		}, []string{"decision"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Retrieval runs by terminal state.",
		}, []string{"state"}),
		notes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_notes",
			Help:      "Notes in the batch returned by a run.",
			Buckets:   []float64{0, 5, 10, 15, 20, 25, 30},
		}),
	}
	c.registry.MustRegister(c.fetches, c.tiers, c.verdicts, c.iterations, c.runs, c.notes)
	return c
}

// Registry exposes the registry for gathering.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// FetchOutcome counts one fetch.
func (c *Collector) FetchOutcome(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.fetches.WithLabelValues(outcome).Inc()
}

// CompressTier counts one compressed image.
func (c *Collector) CompressTier(tier int) {
	c.tiers.WithLabelValues(strconv.Itoa(tier)).Inc()
}

// RecordIteration counts the pass and its verdicts.
func (c *Collector) RecordIteration(rec orchestrator.IterationRecord) error {
	c.iterations.WithLabelValues(string(rec.Decision)).Inc()
	for _, v := range []*corpus.Verdict{rec.Fast, rec.Semantic} {
		if v != nil {
			c.verdicts.WithLabelValues(string(v.Provenance), strconv.FormatBool(v.IsSufficient)).Inc()
		}
	}
	return nil
}

// RecordOutcome counts the terminal state.
func (c *Collector) RecordOutcome(out orchestrator.Outcome) error {
	c.runs.WithLabelValues(string(out.State)).Inc()
	c.notes.Observe(float64(len(out.Batch.Notes)))
	return nil
}

// WriteTextfile dumps all metrics in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
