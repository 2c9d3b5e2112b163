// Diagnostic counters for a queue, reported via logging rather than a
// metrics wire format: a fixed array of atomic counters plus a snapshot
// copy, sized for a single worker.

package tq_internal

import (
	"sync/atomic"
	"time"

	"github.com/docker/go-units"
)

const (
	STATS_EXECUTED_COUNT = iota
	STATS_PANIC_RECOVERED_COUNT
	STATS_UINT64_LEN
)

type Stats struct {
	counters [STATS_UINT64_LEN]atomic.Uint64
}

func (s *Stats) incExecuted()       { s.counters[STATS_EXECUTED_COUNT].Add(1) }
func (s *Stats) incPanicRecovered() { s.counters[STATS_PANIC_RECOVERED_COUNT].Add(1) }

func (s *Stats) snapshot() Stats {
	var out Stats
	for i := range s.counters {
		out.counters[i].Store(s.counters[i].Load())
	}
	return out
}

func (s *Stats) Executed() uint64       { return s.counters[STATS_EXECUTED_COUNT].Load() }
func (s *Stats) PanicRecovered() uint64 { return s.counters[STATS_PANIC_RECOVERED_COUNT].Load() }

// FormatShutdownWait renders a shutdown-wait budget for logging, using
// human-readable duration formatting, e.g. "5s" -> "5 seconds".
func FormatShutdownWait(d time.Duration) string {
	if d < 0 {
		return "indefinite"
	}
	return units.HumanDuration(d)
}

// WorkerCPUTime reports the accumulated user+system CPU time for the
// process, sampled when a worker stops, as a coarse diagnostic of how
// much CPU the demo consumed over its run.
func WorkerCPUTime() (float64, error) {
	return GetMyCpuTime()
}
