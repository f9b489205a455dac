// Package `queue` implements the deadline release queue: jobs ordered by
// absolute deadline, earliest first.
//
// The underlying heap is unsynchronized, so the queue serializes every heap
// operation behind one mutex. Its methods can be called from multiple
// goroutines.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shekkbuilder/binheap/pkg/sbheap"
)

var (
	// ErrFull means the queue has accepted its lifetime capacity of jobs.
	// Cancelling or releasing jobs does not clear it; that is a property
	// of the backing heap.
	ErrFull = errors.New("queue: lifetime job capacity exhausted")

	// ErrUnknownJob means no pending job has the given ID.
	ErrUnknownJob = errors.New("queue: no such pending job")

	// ErrLaterDeadline means an Advance tried to move a deadline
	// backwards. The heap would not detect this and would silently
	// corrupt its order, so it's rejected here, where we know which way
	// time runs.
	ErrLaterDeadline = errors.New("queue: new deadline is later than the current one")
)

// A Job is one pending entry in the release queue.
type Job struct {
	ID        int64
	Label     string
	Deadline  time.Time
	Submitted time.Time
}

// A Queue holds pending jobs and releases them in deadline order.
type Queue struct {
	mu      sync.Mutex
	heap    *sbheap.Heap[*Job]
	pending map[int64]*sbheap.Node[*Job]
	nextID  int64
}

// byDeadline orders jobs earliest-deadline-first, breaking ties by
// submission order so equal deadlines release in FIFO order.
func byDeadline(a, b *sbheap.Node[*Job]) bool {
	if !a.Data.Deadline.Equal(b.Data.Deadline) {
		return a.Data.Deadline.Before(b.Data.Deadline)
	}
	return a.Data.ID < b.Data.ID
}

// New makes a queue that will accept up to `capacity` jobs over its
// lifetime.
func New(capacity int) *Queue {
	return &Queue{
		heap:    sbheap.New(capacity, byDeadline),
		pending: make(map[int64]*sbheap.Node[*Job], capacity),
		nextID:  1,
	}
}

// Submit adds a job and returns it, with its assigned ID.
// Returns [ErrFull] once the queue has accepted its lifetime capacity.
func (q *Queue) Submit(label string, deadline time.Time) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := &Job{
		ID:        q.nextID,
		Label:     label,
		Deadline:  deadline,
		Submitted: time.Now(),
	}
	n, err := q.heap.Insert(job)
	if err != nil {
		if errors.Is(err, sbheap.ErrExhausted) {
			return Job{}, ErrFull
		}
		return Job{}, fmt.Errorf("queue: Couldn't insert job (%w).", err)
	}
	q.nextID++
	q.pending[job.ID] = n
	return *job, nil
}

// Cancel removes a pending job by ID and returns it.
// Returns [ErrUnknownJob] if no pending job has that ID.
func (q *Queue) Cancel(id int64) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n, ok := q.pending[id]
	if !ok {
		return Job{}, ErrUnknownJob
	}
	if err := q.heap.Delete(n); err != nil {
		return Job{}, fmt.Errorf("queue: Couldn't delete job %v (%w).", id, err)
	}
	delete(q.pending, id)
	return *n.Data, nil
}

// Advance moves a pending job's deadline earlier and returns the updated
// job. Returns [ErrUnknownJob] if no pending job has that ID, and
// [ErrLaterDeadline] if the new deadline isn't an improvement.
func (q *Queue) Advance(id int64, deadline time.Time) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n, ok := q.pending[id]
	if !ok {
		return Job{}, ErrUnknownJob
	}
	if deadline.After(n.Data.Deadline) {
		return Job{}, ErrLaterDeadline
	}

	n.Data.Deadline = deadline
	if err := q.heap.Decrease(n); err != nil {
		return Job{}, fmt.Errorf("queue: Couldn't reposition job %v (%w).", id, err)
	}
	return *n.Data, nil
}

// Next returns the job with the earliest deadline, without removing it.
// The second return is false if the queue is empty.
func (q *Queue) Next() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.heap.Peek()
	if n == nil {
		return Job{}, false
	}
	return *n.Data, true
}

// PopDue removes and returns every job whose deadline is at or before
// `now`, in deadline order.
func (q *Queue) PopDue(now time.Time) []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []Job
	for {
		n := q.heap.Peek()
		if n == nil || n.Data.Deadline.After(now) {
			break
		}
		if _, err := q.heap.Pop(); err != nil {
			// Peek just succeeded, so this can't happen.
			break
		}
		delete(q.pending, n.Data.ID)
		due = append(due, *n.Data)
	}
	return due
}

// Snapshot returns a copy of every pending job, in unspecified order.
// Meant for diagnostics and the stats surface.
func (q *Queue) Snapshot() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]Job, 0, q.heap.Len())
	q.heap.ForEach(func(n *sbheap.Node[*Job]) {
		jobs = append(jobs, *n.Data)
	})
	return jobs
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Lifetime returns how many jobs have ever been accepted and the lifetime
// capacity. Once they're equal, Submit fails for good.
func (q *Queue) Lifetime() (accepted, capacity int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Allocated(), q.heap.Cap()
}
