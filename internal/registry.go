// Current-queue registry.
//
// Go has no first-class thread-local storage, and a goroutine is not
// pinned to an OS thread unless it locks itself to one. The queue's worker
// goroutine does exactly that (see priority_unix.go) for the lifetime of
// the queue, which makes its goroutine id a stable identity for the
// duration: nothing else ever runs a task's Run() on that goroutine, and
// the goroutine never exits until shutdown. The registry below is keyed by
// that id, parsed from the standard "goroutine N [running]:" header that
// runtime.Stack always emits as its first line. This is the conventional
// Go substitute for thread-local storage used for exactly this kind of
// debug-only identity check.

package tq_internal

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var registryMu sync.RWMutex
var registry = map[int64]*Engine{}

// goroutineID returns the id of the calling goroutine. It is intended for
// debug assertions only (IsCurrent, Current), never for control flow that
// must be correct under adversarial conditions.
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := 0
	for {
		n = runtime.Stack(buf, false)
		if n < len(buf) {
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	buf = buf[:n]
	// "goroutine 123 [running]:\n..."
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return -1
	}
	buf = buf[len(prefix):]
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, err := strconv.ParseInt(string(buf), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// bindCurrent registers engine as the queue running on the calling
// goroutine. It must be called exactly once, by the worker goroutine, at
// the start of its loop, and never again for that goroutine's lifetime.
func bindCurrent(engine *Engine) {
	registryMu.Lock()
	registry[goroutineID()] = engine
	registryMu.Unlock()
}

// unbindCurrent removes the binding once the worker loop has exited, so the
// goroutine id (which the runtime may eventually reuse) does not outlive
// its queue.
func unbindCurrent() {
	registryMu.Lock()
	delete(registry, goroutineID())
	registryMu.Unlock()
}

// currentEngine returns the Engine bound to the calling goroutine, or nil.
func currentEngine() *Engine {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[goroutineID()]
}

// CurrentEngine is the exported form of currentEngine, for the public
// package's Current().
func CurrentEngine() *Engine {
	return currentEngine()
}
