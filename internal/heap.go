// Min-heap of delayed entries, keyed by (fireAtMs, order).
//
// This mirrors the heap.Interface implementation on Scheduler in the
// periodic-task scheduler this package is adapted from: the same
// Len/Less/Swap/Push/Pop shape, now ordering task-queue delayed entries
// instead of periodic-task next-run timestamps.

package tq_internal

import "container/heap"

type delayedHeap []*delayedEntry

func (h delayedHeap) Len() int { return len(h) }

func (h delayedHeap) Less(i, j int) bool {
	return h[i].key.less(h[j].key)
}

func (h delayedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayedHeap) Push(x any) {
	entry := x.(*delayedEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// peek returns the minimum entry without removing it, or nil if empty.
func (h delayedHeap) peek() *delayedEntry {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

func newDelayedHeap() *delayedHeap {
	h := delayedHeap{}
	heap.Init(&h)
	return &h
}
