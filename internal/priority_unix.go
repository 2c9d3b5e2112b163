//go:build unix

// Apply a worker's priority hint to its own OS thread. The worker goroutine
// must have called runtime.LockOSThread before this is invoked, and must
// never unlock it for the remainder of the queue's lifetime, or the nice
// value could end up applied to an unrelated thread the goroutine is later
// scheduled onto.

package tq_internal

import (
	"golang.org/x/sys/unix"
)

// niceValue mirrors the original engine's High -> realtime, Low -> low,
// Normal -> normal mapping, translated to the closest equivalent available
// without elevated privileges: a negative nice value for High (favored by
// the OS scheduler), a positive one for Low, 0 for Normal. Setting a
// negative nice value without CAP_SYS_NICE fails on most systems; that
// failure is logged and otherwise ignored: priority is a hint, not a
// guarantee.
func niceValue(p Priority) int {
	switch p {
	case PriorityHigh:
		return -5
	case PriorityLow:
		return 10
	default:
		return 0
	}
}

func applyWorkerPriority(name string, p Priority) {
	tid := unix.Gettid()
	if err := unix.Setpriority(unix.PRIO_PROCESS, tid, niceValue(p)); err != nil {
		priorityLog.Warnf("%s: could not set %s priority (nice=%d) on tid %d: %v", name, p, niceValue(p), tid, err)
	}
}
