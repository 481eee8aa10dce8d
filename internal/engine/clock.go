package engine

import "sync/atomic"

// Clock is a monotonic logical clock for event ordering.
//
// Recorder events are stamped with a strictly increasing seq number from
// this clock, so a journal of one engine run replays in exactly the order
// decisions were made. Wall-clock timestamps are never used for ordering.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
