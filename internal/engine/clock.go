package engine

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers.
// Implemented by Clock and by testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
}

// Clock is the logical clock that stamps journal entries. The first call
// to Next returns 1.
//
// Clock is safe for concurrent use, although a session only ever calls it
// from its single writer.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
