package orchestrator

import "fmt"

// #region policy

// BreadthPolicy grows the search limit linearly up to a cap.
type BreadthPolicy struct {
	Initial   int
	Max       int
	Increment int
}

// Policy returns the breadth schedule of c.
func (c Config) Policy() BreadthPolicy {
	return BreadthPolicy{Initial: c.InitialLimit, Max: c.MaxLimit, Increment: c.Increment}
}

// Validate rejects schedules that cannot make progress.
func (p BreadthPolicy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("%w: initial limit %d must be positive", ErrInvalidConfig, p.Initial)
	}
	if p.Increment <= 0 {
		return fmt.Errorf("%w: increment %d must be positive", ErrInvalidConfig, p.Increment)
	}
	if p.Max < p.Initial {
		return fmt.Errorf("%w: max limit %d below initial %d", ErrInvalidConfig, p.Max, p.Initial)
	}
	return nil
}

// #endregion

// #region schedule

// MaxIterations is ceil((max-initial)/increment)+1.
func (p BreadthPolicy) MaxIterations() int {
	span := p.Max - p.Initial
	return (span+p.Increment-1)/p.Increment + 1
}

// Next widens limit by one increment, capped at Max.
func (p BreadthPolicy) Next(limit int) int {
	return min(limit+p.Increment, p.Max)
}

// #endregion
