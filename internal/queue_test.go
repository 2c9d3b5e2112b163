// Tests for queue.go: the scheduling policy that merges the immediate
// FIFO with the delayed heap, and the worker lifecycle built on it.

package tq_internal

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tq_testutils "github.com/go-taskqueue/taskqueue/testutils"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	engine, err := NewEngine(t.Name(), PriorityNormal, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestImmediateFIFOOrder(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine := newTestEngine(t)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		engine.Post(FuncTask(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}))
	}
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d]: want %d, got %d: %v", i, i, got, order)
		}
	}
}

func TestDelayedRunsInTimeOrder(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine := newTestEngine(t)

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup

	delays := []struct {
		name  string
		delay time.Duration
	}{
		{"c", 60 * time.Millisecond},
		{"a", 10 * time.Millisecond},
		{"b", 30 * time.Millisecond},
	}
	wg.Add(len(delays))
	for _, d := range delays {
		d := d
		engine.PostDelayed(FuncTask(func() {
			mu.Lock()
			order = append(order, d.name)
			mu.Unlock()
			wg.Done()
		}), d.delay)
	}
	wg.Wait()

	want := []string{"a", "b", "c"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("order: want %v, got %v", want, order)
	}
}

func TestDelayedTaskDoesNotFireEarly(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine := newTestEngine(t)

	ran := make(chan time.Time, 1)
	start := time.Now()
	const delay = 80 * time.Millisecond
	engine.PostDelayed(FuncTask(func() {
		ran <- time.Now()
	}), delay)

	got := <-ran
	if elapsed := got.Sub(start); elapsed < delay {
		t.Fatalf("task fired %s early", delay-elapsed)
	}
}

func TestTieBreakBySubmissionOrder(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine := newTestEngine(t)

	// Both due "now" (delay 0): per spec, a zero-delay task still goes
	// through the delayed heap, so two zero-delay posts must run in the
	// order they were submitted, same as two immediate posts would.
	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	wg.Add(2)

	engine.PostDelayed(FuncTask(func() {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
		wg.Done()
	}), 0)
	engine.PostDelayed(FuncTask(func() {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		wg.Done()
	}), 0)
	wg.Wait()

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("want [first second], got %v", order)
	}
}

func TestImmediateBeatsLaterDelayed(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine := newTestEngine(t)

	// Post a delayed task first (so it has a lower submission order), then
	// an immediate one, with the delayed one due later: the delayed entry's
	// lower order does not matter here since it isn't due yet, so the
	// immediate task must still run as soon as the worker reaches it, well
	// before the delay elapses.
	const delay = 100 * time.Millisecond
	done := make(chan string, 2)

	engine.PostDelayed(FuncTask(func() { done <- "delayed" }), delay)
	engine.Post(FuncTask(func() { done <- "immediate" }))

	select {
	case first := <-done:
		if first != "immediate" {
			t.Fatalf("want immediate to run first, got %q", first)
		}
	case <-time.After(delay):
		t.Fatal("immediate task did not run before the delayed one's due time")
	}
	<-done
}

func TestMutualExclusion(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine := newTestEngine(t)

	var running atomic.Bool
	var overlap atomic.Bool
	var wg sync.WaitGroup

	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		engine.Post(FuncTask(func() {
			if running.Swap(true) {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			running.Store(false)
			wg.Done()
		}))
	}
	wg.Wait()

	if overlap.Load() {
		t.Fatal("two tasks appeared to run concurrently on the same queue")
	}
}

func TestPostAndReply(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	work := newTestEngine(t)
	replies := newTestEngine(t)

	done := make(chan struct{})
	var taskRan, replyRan bool

	work.PostAndReply(
		FuncTask(func() { taskRan = true }),
		FuncTask(func() { replyRan = true; close(done) }),
		replies,
	)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reply never arrived")
	}
	if !taskRan || !replyRan {
		t.Fatalf("taskRan=%v replyRan=%v", taskRan, replyRan)
	}
}

func TestCloseDropsUnfiredDelayedTasks(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine, err := NewEngine(t.Name(), PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	ran := make(chan struct{}, 1)
	engine.PostDelayed(FuncTask(func() { ran <- struct{}{} }), time.Hour)

	engine.Close()

	select {
	case <-ran:
		t.Fatal("delayed task ran despite Close before its due time")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCloseFromOwnWorkerPanics(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine, err := NewEngine(t.Name(), PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	paniced := make(chan any, 1)
	done := make(chan struct{})
	engine.Post(FuncTask(func() {
		defer close(done)
		defer func() { paniced <- recover() }()
		engine.Close()
	}))

	<-done
	if r := <-paniced; r == nil {
		t.Fatal("want Close called from own worker to panic, got no panic")
	}
}

func TestIsCurrentAndCurrent(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine := newTestEngine(t)

	outside := engine.IsCurrent()
	if outside {
		t.Fatal("IsCurrent: want false from a non-worker goroutine")
	}

	result := make(chan bool, 1)
	engine.Post(FuncTask(func() {
		result <- engine.IsCurrent() && CurrentEngine() == engine
	}))
	if !<-result {
		t.Fatal("want IsCurrent/CurrentEngine true from the worker goroutine itself")
	}
}

func TestRecoverFromTaskPanic(t *testing.T) {
	tlc := tq_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	engine, err := NewEngine(t.Name(), PriorityNormal, WithRecoverFromTaskPanic(true))
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	engine.Post(FuncTask(func() { panic("boom") }))

	done := make(chan struct{})
	engine.Post(FuncTask(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive the panicking task")
	}

	stats := engine.SnapStats()
	if got := stats.PanicRecovered(); got != 1 {
		t.Fatalf("PanicRecovered: want 1, got %d", got)
	}
}
