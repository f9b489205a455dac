// Package `sbheap` implements a bounded-capacity binary heap with stable
// element handles.
//
// Unlike [container/heap], which identifies elements by their current array
// index, this heap hands the caller a [*Node] on insert and guarantees the
// handle stays valid for decrease-key and delete no matter how much the heap
// rebalances underneath it. That makes it usable for release queues and
// deadline queues, where "remove *this* job" and "this job's deadline just
// improved" must run in O(log n) on an element named by the caller.
//
// The heap never allocates after construction. Capacity bounds the *total
// number of insertions over the heap's lifetime*, not the number of elements
// present at once: slots are handed out once and never returned to a free
// pool, even after the element they held is deleted. A heap meant to see k
// insertions must be constructed with capacity k.
//
// It is not goroutine-safe, users must implement mutexes on their end.
package sbheap

import (
	"errors"
)

var (
	// ErrExhausted is returned by Insert once the heap has handed out all
	// of its slots. Deleting elements does not clear this condition.
	ErrExhausted = errors.New("sbheap: all slots allocated")

	// ErrEmpty is returned by Pop when the heap holds no elements.
	ErrEmpty = errors.New("sbheap: heap is empty")

	// ErrNotMember is returned when a handle does not currently belong to
	// this heap: it was already removed, never inserted, or came from a
	// different heap.
	ErrNotMember = errors.New("sbheap: handle is not in this heap")
)

// notInHeap marks a node that holds no tree position.
const notInHeap = -1

// A LessFunc reports whether `a` should sort closer to the root than `b`.
// It must be a total preorder over the handles and consistent for the
// heap's whole lifetime. Pass a less-than for a min-heap, a greater-than
// for a max-heap. Ties may be broken arbitrarily, and the relative order
// of equal elements can change across operations; embed a secondary key
// in the comparator if stability among ties matters.
type LessFunc[T any] func(a, b *Node[T]) bool

// A Node is the caller-held handle to one inserted element. It is returned
// by [Heap.Insert] and stays valid for [Heap.Decrease], [Heap.Delete] and
// [Heap.Contains] until the element itself is removed.
type Node[T any] struct {
	// Data is the caller's payload. The heap never touches it; the
	// caller owns its lifetime and must not invalidate it while the
	// handle remains in the heap.
	Data T

	owner *Heap[T] // heap this slot was allocated from
	home  int      // slot index in owner.nodes, fixed at insertion
	pos   int      // current tree position, notInHeap when removed
}

// A Heap is a fixed-capacity binary min-heap (or max-heap, depending on the
// comparator) over caller-held handles. The zero value is not usable; make
// one with [New].
type Heap[T any] struct {
	less LessFunc[T]

	size      int // elements currently in the tree
	allocated int // slots ever handed out, monotonic

	// nodes is the slot store: one entry per lifetime insertion, never
	// reallocated, so &nodes[i] is a stable handle. tree maps a tree
	// position to the slot whose content currently sits there; position
	// i has children at 2i+1 and 2i+2. Every move through tree updates
	// the moved slot's pos field, which is what keeps handles valid.
	nodes []Node[T]
	tree  []int
}

// New makes a heap that can accept `capacity` insertions over its lifetime,
// ordered by `less`. Panics if capacity is negative or less is nil, since
// neither can be fixed after construction.
func New[T any](capacity int, less LessFunc[T]) *Heap[T] {
	if capacity < 0 {
		panic("sbheap: negative capacity")
	}
	if less == nil {
		panic("sbheap: nil comparator")
	}

	h := &Heap[T]{
		less:  less,
		nodes: make([]Node[T], capacity),
		tree:  make([]int, capacity),
	}
	for i := range h.nodes {
		h.nodes[i].pos = notInHeap
		h.tree[i] = notInHeap
	}
	return h
}

// Len returns the number of elements currently in the heap.
func (h *Heap[T]) Len() int {
	return h.size
}

// Cap returns the lifetime insertion capacity the heap was made with.
func (h *Heap[T]) Cap() int {
	return len(h.nodes)
}

// Allocated returns how many insertions the heap has accepted so far.
// It never decreases; once it reaches Cap, Insert fails for good.
func (h *Heap[T]) Allocated() int {
	return h.allocated
}

// Empty reports whether the heap holds no elements.
func (h *Heap[T]) Empty() bool {
	return h.size == 0
}

// Insert adds `data` to the heap and returns its handle.
// Returns [ErrExhausted] if the heap has already accepted Cap insertions.
// The time complexity is O(log n).
func (h *Heap[T]) Insert(data T) (*Node[T], error) {
	if h.allocated == len(h.nodes) {
		return nil, ErrExhausted
	}

	home := h.allocated
	h.allocated++

	n := &h.nodes[home]
	n.Data = data
	n.owner = h
	n.home = home
	n.pos = h.size

	h.tree[h.size] = home
	h.size++

	h.siftUp(n.pos)
	return n, nil
}

// Peek returns the handle at the root, which is the minimum under the
// comparator, or nil if the heap is empty. The time complexity is O(1).
func (h *Heap[T]) Peek() *Node[T] {
	if h.size == 0 {
		return nil
	}
	return &h.nodes[h.tree[0]]
}

// Pop removes the root element and returns its handle. The handle's Data
// is still intact for the caller; the handle itself is no longer a member.
// Returns [ErrEmpty] if the heap holds no elements.
// The time complexity is O(log n).
func (h *Heap[T]) Pop() (*Node[T], error) {
	if h.size == 0 {
		return nil, ErrEmpty
	}
	root := &h.nodes[h.tree[0]]
	h.removeRoot()
	return root, nil
}

// Decrease restores heap order after the caller made `n`'s key more
// minimal (e.g. moved a deadline earlier). It only sifts toward the root:
// the caller must guarantee the key did not regress, as a regression is
// not detected here and silently breaks heap order. Layers that can tell
// which way a key moved should reject regressions before calling.
// Returns [ErrNotMember] if the handle is not currently in this heap.
// The time complexity is O(log n).
func (h *Heap[T]) Decrease(n *Node[T]) error {
	if !h.Contains(n) {
		return ErrNotMember
	}
	h.siftUp(n.pos)
	return nil
}

// Delete removes an arbitrary element by its handle. The element is
// promoted to the root with unconditional parent swaps and removed by the
// same path Pop uses. Returns [ErrNotMember] if the handle is not
// currently in this heap. The time complexity is O(log n).
func (h *Heap[T]) Delete(n *Node[T]) error {
	if !h.Contains(n) {
		return ErrNotMember
	}

	// Promotion ignores the comparator on purpose: the target must reach
	// the root even though its key doesn't warrant it. Heap order is
	// restored by the sift-down in removeRoot.
	for n.pos > 0 {
		h.swap(n.pos, parent(n.pos))
	}
	h.removeRoot()
	return nil
}

// Contains reports whether `n` is currently an element of this heap.
// Returns false for nil handles, removed handles, and handles from other
// heaps. The time complexity is O(1).
func (h *Heap[T]) Contains(n *Node[T]) bool {
	return n != nil && n.owner == h && n.pos != notInHeap
}

// ForEach calls `fn` once for every element currently in the heap, in
// unspecified order. The heap must not be mutated during the traversal.
// Meant for diagnostics; extraction is how you visit in sorted order.
func (h *Heap[T]) ForEach(fn func(n *Node[T])) {
	for i := 0; i < h.size; i++ {
		fn(&h.nodes[h.tree[i]])
	}
}

// removeRoot detaches whichever slot currently sits at the root, moves the
// last occupied position up in its place and sifts it down.
func (h *Heap[T]) removeRoot() {
	root := &h.nodes[h.tree[0]]
	root.pos = notInHeap

	h.size--
	last := h.size
	if last > 0 {
		h.tree[0] = h.tree[last]
		h.nodes[h.tree[0]].pos = 0
	}
	h.tree[last] = notInHeap

	if h.size > 1 {
		h.siftDown(0)
	}
}

// swap exchanges the content of two tree positions and fixes up the pos
// field of both owning slots, so outstanding handles keep pointing at the
// right place. O(1).
func (h *Heap[T]) swap(i, j int) {
	h.tree[i], h.tree[j] = h.tree[j], h.tree[i]
	h.nodes[h.tree[i]].pos = i
	h.nodes[h.tree[j]].pos = j
}

func (h *Heap[T]) siftUp(pos int) {
	for pos > 0 {
		p := parent(pos)
		if !h.less(&h.nodes[h.tree[pos]], &h.nodes[h.tree[p]]) {
			break
		}
		h.swap(pos, p)
		pos = p
	}
}

func (h *Heap[T]) siftDown(pos int) {
	for {
		left := 2*pos + 1
		if left >= h.size {
			break
		}

		least := left
		if right := left + 1; right < h.size &&
			h.less(&h.nodes[h.tree[right]], &h.nodes[h.tree[left]]) {
			least = right
		}
		if !h.less(&h.nodes[h.tree[least]], &h.nodes[h.tree[pos]]) {
			break
		}
		h.swap(pos, least)
		pos = least
	}
}

func parent(pos int) int {
	return (pos - 1) / 2
}
