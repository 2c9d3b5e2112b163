// Package taskqueue is the public face of this module's single-worker
// task queue: a FIFO of immediate tasks merged with a time-ordered heap of
// delayed ones, drained by one dedicated goroutine per Queue.
package taskqueue

import (
	"time"

	"github.com/sirupsen/logrus"

	tq_internal "github.com/go-taskqueue/taskqueue/internal"
)

// Priority is a hint applied to the worker goroutine's underlying OS
// thread. It never affects scheduling order within a single queue.
type Priority = tq_internal.Priority

const (
	PriorityLow    = tq_internal.PriorityLow
	PriorityNormal = tq_internal.PriorityNormal
	PriorityHigh   = tq_internal.PriorityHigh
)

// ParsePriority maps a config/CLI priority name ("low", "normal", "high")
// to a Priority, substituting Normal and logging a warning for anything
// else.
func ParsePriority(name string) Priority {
	return tq_internal.ParsePriority(name)
}

// Task is the unit of deferred work posted to a Queue. See the Run
// documentation on the internal type for the at-most-once, single-worker
// execution contract.
type Task = tq_internal.Task

// FuncTask adapts a plain func() into a Task.
type FuncTask = tq_internal.FuncTask

// Forever is the sentinel accepted in place of a wait timeout, meaning
// "block until signaled, however long that takes".
const Forever = tq_internal.Forever

// Queue is a single-worker task queue: tasks posted with Post run in FIFO
// order, tasks posted with PostDelayed run no earlier than their delay,
// and whichever of the two is due first wins, ties broken by submission
// order. At most one task runs at a time per Queue, always on the same
// goroutine.
type Queue struct {
	engine *tq_internal.Engine
}

// Option customizes queue construction.
type Option = tq_internal.Option

// WithRecoverFromTaskPanic makes the worker recover from a panicking Task,
// log it and continue, instead of letting the panic take down the worker
// goroutine (and, unrecovered, the process).
func WithRecoverFromTaskPanic(enabled bool) Option {
	return tq_internal.WithRecoverFromTaskPanic(enabled)
}

// New starts a queue's worker goroutine and blocks until it is ready to
// accept submissions. name is used for logging and diagnostics only.
func New(name string, priority Priority, opts ...Option) (*Queue, error) {
	engine, err := tq_internal.NewEngine(name, priority, opts...)
	if err != nil {
		return nil, err
	}
	return &Queue{engine: engine}, nil
}

// Name returns the queue's name, as given to New.
func (q *Queue) Name() string { return q.engine.Name() }

// Post enqueues task to run as soon as the worker reaches it, after any
// immediate task already queued ahead of it.
func (q *Queue) Post(task Task) { q.engine.Post(task) }

// PostDelayed enqueues task to run no earlier than delay from now. A zero
// delay still goes through the delayed path, not the immediate FIFO.
func (q *Queue) PostDelayed(task Task, delay time.Duration) {
	q.engine.PostDelayed(task, delay)
}

// PostAndReply posts task to this queue; once task has run, reply is
// posted to replyQueue (which may be this same Queue). No lifetime
// relationship is established between the two queues beyond that deferred
// post: closing replyQueue before the wrapper runs is the caller's
// mistake to avoid.
func (q *Queue) PostAndReply(task, reply Task, replyQueue *Queue) {
	q.engine.PostAndReply(task, reply, replyQueue.engine)
}

// IsCurrent reports whether the calling goroutine is this queue's own
// worker.
func (q *Queue) IsCurrent() bool { return q.engine.IsCurrent() }

// Current returns the Queue running on the calling goroutine, or nil if
// the caller is not running on any queue's worker.
func Current() *Queue {
	engine := tq_internal.CurrentEngine()
	if engine == nil {
		return nil
	}
	return &Queue{engine: engine}
}

// Close stops the worker goroutine and waits for it to exit. Immediate
// tasks and due delayed tasks already pending are still run before the
// worker exits; delayed tasks not yet due are dropped, not run. Close must
// not be called from the queue's own worker goroutine; it
// panics if it detects that, since waiting for the worker to stop from
// inside the worker itself would deadlock.
func (q *Queue) Close() { q.engine.Close() }

// Stats is a snapshot of a queue's diagnostic counters.
type Stats = tq_internal.Stats

// SnapStats returns a copy of the queue's current diagnostic counters.
func (q *Queue) SnapStats() Stats { return q.engine.SnapStats() }

// Config carries the construction parameters for a named queue, as
// loaded from a taskqueue config file (see LoadConfig).
type Config = tq_internal.QueueConfig

// DefaultConfig returns the Config a queue gets when nothing overrides
// it: normal priority, no panic recovery.
func DefaultConfig() *Config { return tq_internal.DefaultQueueConfig() }

// RunnerConfig carries the ambient settings shared by every queue an
// application built with this module drives: shutdown grace period and
// logging.
type RunnerConfig = tq_internal.RunnerConfig

// LoadConfig loads a RunnerConfig and a map of named QueueConfigs from a
// YAML file. Pass a non-nil buf (and an empty cfgFile) to load from an
// in-memory buffer instead, as tests do.
func LoadConfig(cfgFile string, buf []byte) (*RunnerConfig, map[string]*Config, error) {
	return tq_internal.LoadConfig(cfgFile, buf)
}

// GetRootLogger returns the package's root logger. Its concrete type is
// deliberately obscured; the only supported use outside this package is
// feeding it to testutils.NewTestLogCollect in tests.
func GetRootLogger() any { return tq_internal.RootLogger }

// NewCompLogger creates a component logger tagged comp=compName, the way
// every internal component of this package logs.
func NewCompLogger(comp string) *logrus.Entry {
	return tq_internal.NewCompLogger(comp)
}

// Run is the entry point for cmd/taskqueuedemo: it loads a config file,
// starts the queues it names, posts a small demo workload to each, and
// blocks until interrupted by a signal, then shuts them all down bounded
// by the config's shutdown wait. Its return value is a process exit code.
func Run() int { return tq_internal.Run() }

// AddCallerSrcPathPrefixToLogger registers the caller's module-relative
// source directory with the logger's path-stripping cache, so that log
// lines report short, repo-relative file paths. Typically called once
// from an application's main package init(), with upNDirs set to however
// many directories main.go sits below its module root.
func AddCallerSrcPathPrefixToLogger(upNDirs int) {
	tq_internal.AddCallerSrcPathPrefixToLogger(upNDirs, 1)
}
