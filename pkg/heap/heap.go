// Package heap implements the ordered-extraction heap of spec §4.D: a
// lazy min-heap over (abstract-distance, label) pairs that caches
// already-extracted entries so repeated NthSmallest queries for
// already-seen positions are O(1). The heap orders by the total
// lexicographic order on bounds (T.Less) — this is a tie-breaking
// convenience for extraction order, not the soundness-relevant partial
// dominance relation the label-bound walk (pkg/classify) actually
// relies on.
//
// Shape adapted from the container/heap min-heap used for candidate
// extraction in this repository's earlier nearest-neighbor search
// code: a slice-backed container.heap.Interface wrapped by a small
// type that remembers what it has already popped.
package heap

import (
	stdheap "container/heap"

	"github.com/abstract-ml/knave/pkg/abstract"
)

// Entry pairs an abstract distance with the label of the training
// point it was computed against.
type Entry[T abstract.Scalar[T]] struct {
	Distance T
	Label    int
}

type innerHeap[T abstract.Scalar[T]] []Entry[T]

func (h innerHeap[T]) Len() int            { return len(h) }
func (h innerHeap[T]) Less(i, j int) bool  { return h[i].Distance.Less(h[j].Distance) }
func (h innerHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *innerHeap[T]) Push(x interface{}) { *h = append(*h, x.(Entry[T])) }
func (h *innerHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Heap is the ordered-extraction heap. Construct with New; it is not
// safe for concurrent use by multiple goroutines (each test point's
// classification builds and discards its own Heap — see spec §5).
type Heap[T abstract.Scalar[T]] struct {
	pending   innerHeap[T]
	extracted []Entry[T]
}

// New builds a Heap over the given (distance, label) pairs. The input
// slice is copied; the original is left untouched.
func New[T abstract.Scalar[T]](entries []Entry[T]) *Heap[T] {
	h := &Heap[T]{pending: append(innerHeap[T](nil), entries...)}
	stdheap.Init(&h.pending)
	return h
}

// Size returns the total number of (distance, label) pairs, whether
// already extracted or still pending. It is invariant under
// NthSmallest/Pop calls.
func (h *Heap[T]) Size() int {
	return len(h.pending) + len(h.extracted)
}

// Pop extracts and returns the current minimum, advancing the
// extraction cursor. ok is false if the heap is exhausted.
func (h *Heap[T]) Pop() (entry Entry[T], ok bool) {
	if len(h.pending) == 0 {
		return Entry[T]{}, false
	}
	top := stdheap.Pop(&h.pending).(Entry[T])
	h.extracted = append(h.extracted, top)
	return top, true
}

// NthSmallest returns the n-th smallest entry (1-indexed). Entries up
// to n are extracted and cached on first access; subsequent calls for
// n <= already-extracted are O(1) slice lookups. ok is false if n
// exceeds Size().
func (h *Heap[T]) NthSmallest(n int) (entry Entry[T], ok bool) {
	if n < 1 || n > h.Size() {
		return Entry[T]{}, false
	}
	for len(h.extracted) < n {
		if _, popped := h.Pop(); !popped {
			return Entry[T]{}, false
		}
	}
	return h.extracted[n-1], true
}
