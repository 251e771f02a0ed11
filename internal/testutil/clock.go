// Package testutil provides shared helpers for tests.
package testutil

import "sync"

// DeterministicClock is a resettable logical clock for tests.
//
// Unlike engine.Clock it can be rewound, so a scenario can run repeatedly
// with identical sequence values. Sequence units are the same currency the
// engine uses for excursion-window arithmetic.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock starting at 0. The first Next
// returns 1, matching the engine's assignment of seq 1 to the first
// mutating operation on a fresh database.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Advance burns n sequence units, simulating unrelated activity between
// readings. Returns the sequence value after the advance.
func (c *DeterministicClock) Advance(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq += n
	return c.seq
}

// Reset rewinds the clock to 0 for scenario reuse.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
