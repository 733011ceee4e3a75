package batch

import (
	"context"
	"math/rand/v2"
	"time"
)

// #region pacer

// Pacer sleeps a uniformly random duration in [Min, Max] between requests.
type Pacer struct {
	Min   time.Duration
	Max   time.Duration
	rand  func() float64
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer with real randomness and a context-aware sleep.
func NewPacer(lo, hi time.Duration) *Pacer {
	if hi < lo {
		hi = lo
	}
	return &Pacer{Min: lo, Max: hi, rand: rand.Float64, sleep: sleepCtx}
}

// Next returns the next delay without sleeping.
func (p *Pacer) Next() time.Duration {
	span := p.Max - p.Min
	if span <= 0 {
		return p.Min
	}
	return p.Min + time.Duration(p.rand()*float64(span))
}

// Wait sleeps for the next delay or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) (time.Duration, error) {
	d := p.Next()
	if d <= 0 {
		return 0, ctx.Err()
	}
	return d, p.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// #endregion pacer
