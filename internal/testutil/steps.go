package testutil

import "sync/atomic"

// StepCounter numbers trace events. Numbering starts at 1 and never skips,
// so two runs of the same scenario number their steps identically.
type StepCounter struct {
	n atomic.Int64
}

// NewStepCounter returns a counter whose first Next is 1.
func NewStepCounter() *StepCounter {
	return &StepCounter{}
}

// Next claims the next step number.
func (c *StepCounter) Next() int64 {
	return c.n.Add(1)
}

// Last is the most recently claimed number, or 0 before any step.
func (c *StepCounter) Last() int64 {
	return c.n.Load()
}
