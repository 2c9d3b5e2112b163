// Engine is the single-worker task queue core.
//
// Unlike the periodic-task Scheduler this package grew from, which fans
// a heap of recurring tasks out to a pool of workers, Engine has exactly
// one worker goroutine merging two queues - a FIFO of immediate tasks and
// a min-heap of delayed ones - picking whichever is eligible first, with
// ties broken by submission order.
//
//               +-----------------+      +-----------------+
//               |  Immediate FIFO |      |  Delayed Heap    |
//               +-----------------+      +-----------------+
//                         \                      /
//                          \                    /
//                           v                  v
//                         +----------------------+
//                         |     nextTask()        |
//                         +----------------------+
//                                    |
//                                    v
//                         +----------------------+
//                         |  single worker loop   |
//                         +----------------------+
//
// Post/PostDelayed/PostAndReply may be called from any goroutine, including
// recursively from a task running on this engine's own worker.

package tq_internal

import (
	"container/heap"
	"container/list"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var engineLog = NewCompLogger("queue")

// Engine is the internal implementation behind the public Queue type.
type Engine struct {
	name     string
	priority Priority

	recoverFromTaskPanic bool

	// Guards immediate, delayed and nextOrder. The task body itself always
	// runs outside this lock.
	mu        sync.Mutex
	immediate *list.List // of *immediateEntry
	delayed   *delayedHeap
	nextOrder OrderId

	quit atomic.Bool

	wake    *WakeEvent
	started *WakeEvent
	stopped *WakeEvent

	stats Stats
}

// Option customizes queue construction.
type Option func(*Engine)

// WithRecoverFromTaskPanic makes the worker recover from a panicking Task,
// log it, and continue the loop instead of dying. Off by default, so a
// panicking task fails loudly unless a caller opts into recovery.
func WithRecoverFromTaskPanic(enabled bool) Option {
	return func(e *Engine) { e.recoverFromTaskPanic = enabled }
}

// NewEngine constructs and starts a queue's worker goroutine, blocking
// until the worker has bound its current-queue identity and entered the
// scheduling loop - at that point the queue is ready to accept submissions.
func NewEngine(name string, priority Priority, opts ...Option) (*Engine, error) {
	if name == "" {
		return nil, fmt.Errorf("taskqueue: queue name must not be empty")
	}

	e := &Engine{
		name:      name,
		priority:  priority,
		immediate: list.New(),
		delayed:   newDelayedHeap(),
		wake:      NewWakeEvent(),
		started:   NewWakeEvent(),
		stopped:   NewWakeEvent(),
	}
	for _, opt := range opts {
		opt(e)
	}

	engineLog.Infof("%s: starting, priority=%s", name, priority)
	go e.workerLoop()
	e.started.Wait(Forever)

	return e, nil
}

// Name returns the queue's name, as given at construction.
func (e *Engine) Name() string { return e.name }

// Post enqueues task to run as soon as the worker reaches it.
func (e *Engine) Post(task Task) {
	e.mu.Lock()
	order := e.nextOrder
	e.nextOrder++
	e.immediate.PushBack(&immediateEntry{order: order, task: task})
	e.mu.Unlock()

	e.wake.Signal()
}

// PostDelayed enqueues task to run no earlier than delay from now. A zero
// delay still goes through the delayed heap rather than the immediate
// FIFO, so the tie-break rule between immediate and delayed tasks holds
// uniformly regardless of how small the delay is.
func (e *Engine) PostDelayed(task Task, delay time.Duration) {
	fireAt := NowMs() + uint32(delay.Milliseconds())

	e.mu.Lock()
	order := e.nextOrder
	e.nextOrder++
	entry := &delayedEntry{key: delayedKey{fireAtMs: fireAt, order: order}, task: task}
	heap.Push(e.delayed, entry)
	e.mu.Unlock()

	e.wake.Signal()
}

// PostAndReply posts task to this engine; once it runs, its wrapper posts
// reply to replyQueue (which may be this same engine). No lifetime
// relationship is established between the two queues beyond that deferred
// post: if replyQueue is closed before the wrapper runs, that is the
// caller's responsibility to avoid.
func (e *Engine) PostAndReply(task, reply Task, replyQueue *Engine) {
	e.Post(FuncTask(func() {
		if task != nil {
			task.Run()
		}
		replyQueue.Post(reply)
	}))
}

// nextTask picks the next runnable task, or reports how long the worker
// should sleep until one becomes due. It returns either a task ready to
// run, or a sleep duration (0 meaning "wait indefinitely").
func (e *Engine) nextTask() (task Task, sleepMs uint32) {
	tick := NowMs()

	e.mu.Lock()
	defer e.mu.Unlock()

	dueDelayed := e.delayed.peek()
	if dueDelayed != nil && Uint32AtOrAfter(tick, dueDelayed.key.fireAtMs) {
		if front := e.immediate.Front(); front != nil {
			entry := front.Value.(*immediateEntry)
			if entry.order < dueDelayed.key.order {
				e.immediate.Remove(front)
				return entry.task, 0
			}
		}
		heap.Pop(e.delayed)
		return dueDelayed.task, 0
	}

	if dueDelayed != nil {
		sleepMs = dueDelayed.key.fireAtMs - tick
	}

	if front := e.immediate.Front(); front != nil {
		entry := front.Value.(*immediateEntry)
		e.immediate.Remove(front)
		return entry.task, 0
	}

	return nil, sleepMs
}

func (e *Engine) workerLoop() {
	runtime.LockOSThread()
	applyWorkerPriority(e.name, e.priority)

	bindCurrent(e)
	defer unbindCurrent()

	e.started.Signal()
	engineLog.Infof("%s: worker started", e.name)

	for {
		task, sleepMs := e.nextTask()

		if task != nil {
			e.runTask(task)
			continue
		}

		if e.quit.Load() {
			break
		}

		if sleepMs == 0 {
			e.wake.Wait(Forever)
		} else {
			e.wake.Wait(time.Duration(sleepMs) * time.Millisecond)
		}
	}

	e.dropResidualTasks()
	if cpu, err := WorkerCPUTime(); err == nil {
		engineLog.Infof("%s: worker stopped, cpu_time=%.3fs", e.name, cpu)
	} else {
		engineLog.Infof("%s: worker stopped", e.name)
	}
	e.stopped.Signal()
}

func (e *Engine) runTask(task Task) {
	if !e.recoverFromTaskPanic {
		task.Run()
		e.stats.incExecuted()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			engineLog.Errorf("%s: recovered task panic: %v", e.name, r)
			e.stats.incPanicRecovered()
		}
	}()
	task.Run()
	e.stats.incExecuted()
}

// dropResidualTasks discards whatever is left in both queues once the
// worker has decided to stop. Un-due delayed tasks are dropped rather than
// run or drained at shutdown; only their count is logged.
func (e *Engine) dropResidualTasks() {
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped := e.immediate.Len() + e.delayed.Len()
	e.immediate.Init()
	*e.delayed = (*e.delayed)[:0]
	if dropped > 0 {
		engineLog.Infof("%s: dropped %d residual task(s) at shutdown", e.name, dropped)
	}
}

// IsCurrent reports whether the calling goroutine is this engine's worker.
func (e *Engine) IsCurrent() bool {
	return currentEngine() == e
}

// Close stops the worker and waits for it to exit. It must not be called
// from the worker's own goroutine: doing so would deadlock waiting on its
// own stopped signal, so that case panics instead as an unrecoverable
// programming error.
//
// Close does not bound how long it waits: quit is only consulted once
// nextTask returns no runnable work, so a producer that keeps posting
// immediate tasks faster than the worker drains them can delay shutdown
// indefinitely.
func (e *Engine) Close() {
	if e.IsCurrent() {
		panic(fmt.Sprintf("taskqueue: %s: Close called from its own worker goroutine", e.name))
	}

	e.quit.Store(true)
	e.wake.Signal()
	e.stopped.Wait(Forever)
}

// SnapStats returns a copy of the engine's current diagnostic counters.
func (e *Engine) SnapStats() Stats {
	return e.stats.snapshot()
}
