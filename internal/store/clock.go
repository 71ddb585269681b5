package store

import "sync/atomic"

// Clock is a monotonic logical clock for run ordering.
//
// Runs are stamped with a strictly increasing seq number instead of
// wall-clock timestamps. This keeps run history deterministic and
// replayable: two stores fed the same runs in the same order hold
// identical rows.
//
// Thread-safety: safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used on open to resume from the last persisted run.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
