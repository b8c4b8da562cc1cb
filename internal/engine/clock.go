package engine

import "sync/atomic"

// Clock stamps the steps of one run with a logical sequence number
// starting at 1. History records of a run are ordered by seq, never by
// wall-clock time.
type Clock struct {
	n atomic.Int64
}

// NewClock returns a clock that has stamped nothing yet.
func NewClock() *Clock {
	return &Clock{}
}

// Next stamps one step.
func (c *Clock) Next() int64 {
	return c.n.Add(1)
}

// Steps reports how many steps have been stamped.
func (c *Clock) Steps() int64 {
	return c.n.Load()
}
