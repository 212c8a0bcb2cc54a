// Package scorer computes a Memory's effective retrieval weight: importance
// decayed by age, overridden to 1.0 for pinned memories. The clock is
// injectable (spec §9 design note) so decay and prune are testable without
// sleeping or mocking time.Now globally.
package scorer

import (
	"math"
	"time"

	"agentmem/internal/memory"
)

// Clock supplies the current time. SystemClock uses time.Now; tests
// substitute a FixedClock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a test Clock that always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// decayFloor is the minimum decay multiplier applied to non-pinned
// memories, preserving long-tail relevance per spec §4.5.
const decayFloor = 0.1

// decayRate is the daily multiplicative decay applied to importance.
const decayRate = 0.95

// Effective computes the effective score of a memory against clock's
// current time:
//
//	pinned        -> 1.0
//	otherwise     -> importance * max(0.1, 0.95^floor(age_days))
//
// The result is always in [0, 1] given importance in [0, 1].
func Effective(m memory.Memory, clock Clock) float64 {
	if m.Pinned {
		return 1.0
	}
	ageDays := math.Floor(clock.Now().Sub(m.CreatedAt).Hours() / 24)
	if ageDays < 0 {
		ageDays = 0
	}
	decay := math.Max(decayFloor, math.Pow(decayRate, ageDays))
	return m.Importance * decay
}
