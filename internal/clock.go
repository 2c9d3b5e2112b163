// Monotonic millisecond clock for the scheduler core.

package tq_internal

import (
	"sync"
	"time"
)

var clockLog = NewCompLogger("clock")

// Clock hands out a 32-bit, wrap-tolerant millisecond timestamp derived from
// a single monotonic anchor established at first use. All queues in a
// process share the same anchor, so timestamps minted by different queues
// remain comparable to each other, which matters for tests that post across
// queues (see PostAndReply).
type Clock struct {
	once  sync.Once
	start time.Time
}

var processClock Clock

// NowMs returns the current time as milliseconds since the clock's anchor,
// truncated to 32 bits. Two readings taken less than ~24.8 days apart compare
// correctly under wrap-tolerant subtraction (see Uint32Before); this package
// does not attempt to detect or correct for wrap beyond that.
func (c *Clock) NowMs() uint32 {
	c.once.Do(func() {
		c.start = time.Now()
		tick, err := GetSysClktck()
		if err != nil {
			clockLog.Debugf("could not determine scheduling clock tick: %v", err)
		} else {
			clockLog.Debugf("host scheduling clock tick: %d Hz", tick)
		}
	})
	return uint32(time.Since(c.start).Milliseconds())
}

// NowMs is a package-level convenience wrapping the process-wide clock.
func NowMs() uint32 {
	return processClock.NowMs()
}

// Uint32Before reports whether a precedes b in wrap-tolerant 32-bit time,
// the same idiom used to compare TCP sequence numbers: the difference is
// interpreted as a signed 32-bit value, so a clock that has wrapped around
// still orders correctly as long as a and b are within 2^31 ms of each
// other.
func Uint32Before(a, b uint32) bool {
	return int32(a-b) < 0
}

// Uint32AtOrAfter reports whether a has reached or passed b.
func Uint32AtOrAfter(a, b uint32) bool {
	return !Uint32Before(a, b)
}
