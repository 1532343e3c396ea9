package core

import (
	"context"
	"sync/atomic"

	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

// TransportQueue is the bounded, single-producer single-consumer transport
// a FIFO ring of K entries plus one "slack"
// cell. The ring never evicts on its own; once it is full, further writes
// land in the slack cell, silently discarding whatever the slack cell
// already held. Consuming the ring's head immediately promotes a pending
// slack value into the freed slot. This reproduces the documented worked
// examples exactly (see DESIGN.md's Open Question note): up to K+1
// successive writes without an intervening read are lossless, and the
// K+2nd write is the first to report data loss.
//
// All public methods are safe across exactly one producer goroutine and
// one consumer goroutine; it is undefined behavior for two goroutines to
// call PushOverwrite concurrently, or for two goroutines to call Pop/PopWait
// concurrently.
type TransportQueue[T types.Element] struct {
	state guardedState[T]

	// signal is sent to (non-blocking, best-effort) whenever PushOverwrite
	// makes data available, and drained by PopWait to avoid a busy loop
	// while still honoring context cancellation.
	signal chan struct{}

	// continuation, if set, is invoked via invoker the next time data
	// becomes available.
	continuation atomic.Pointer[func()]
	invoker      Invoker
}

// guardedState bundles the spinlock with the compound state it protects:
// the ring (a slice used as a circular buffer of capacity K), its
// read/write cursors, the element count, and the slack cell.
type guardedState[T types.Element] struct {
	lock spinlock

	ring     []types.Buffer[T]
	head     int // index of the oldest element
	size     int // number of elements currently in ring
	hasSlack bool
	slack    types.Buffer[T]
}

// NewTransportQueue builds a TransportQueue with ring capacity k (k must be
// >= 1) for payloads of length n, and the given Invoker used to run
// continuations registered via Then.
func NewTransportQueue[T types.Element](k, n int, invoker Invoker) *TransportQueue[T] {
	if k < 1 {
		panic("pvsync: transport queue capacity must be at least 1")
	}
	ring := make([]types.Buffer[T], k)
	for i := range ring {
		ring[i] = *types.NewBuffer[T](n)
	}
	q := &TransportQueue[T]{
		signal:  make(chan struct{}, 1),
		invoker: invoker,
	}
	q.state.ring = ring
	q.state.slack = *types.NewBuffer[T](n)
	return q
}

// PushOverwrite enqueues buf by swapping its contents into the queue,
// leaving buf holding whatever was displaced (the previous contents of the
// ring's tail slot or of the slack cell, still a validly-sized Buffer). Returns true iff a
// previously-unread value was discarded.
func (q *TransportQueue[T]) PushOverwrite(buf *types.Buffer[T]) bool {
	s := &q.state
	s.lock.Lock()
	lost := false
	switch {
	case s.size < len(s.ring):
		idx := (s.head + s.size) % len(s.ring)
		s.ring[idx].Swap(buf)
		s.size++
	case !s.hasSlack:
		s.slack.Swap(buf)
		s.hasSlack = true
	default:
		s.slack.Swap(buf)
		lost = true
	}
	s.lock.Unlock()

	q.notify()
	return lost
}

// Pop attempts a non-blocking dequeue: on success it swaps the head
// element into buf and returns true; on an empty queue it returns false
// without modifying buf.
func (q *TransportQueue[T]) Pop(buf *types.Buffer[T]) bool {
	s := &q.state
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.size == 0 {
		return false
	}
	s.ring[s.head].Swap(buf)
	s.head = (s.head + 1) % len(s.ring)
	s.size--

	if s.hasSlack {
		// Promote the pending slack value into the slot just freed at the
		// (new) tail.
		tail := (s.head + s.size) % len(s.ring)
		s.ring[tail].Swap(&s.slack)
		s.size++
		s.hasSlack = false
	}
	return true
}

// PopWait blocks until Pop would succeed or ctx is cancelled, then behaves
// like Pop. Returns ctx.Err() on cancellation.
func (q *TransportQueue[T]) PopWait(ctx context.Context, buf *types.Buffer[T]) error {
	for {
		if q.Pop(buf) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.signal:
			// loop around and retry Pop
		}
	}
}

// Then registers fn to run, via the queue's Invoker, the next time data
// becomes available. Only one pending continuation is kept; registering a
// new one replaces any not-yet-fired continuation.
func (q *TransportQueue[T]) Then(fn func()) {
	f := fn
	q.continuation.Store(&f)
}

// notify wakes a pending PopWait and fires any registered continuation.
// Called with the spinlock already released.
func (q *TransportQueue[T]) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
	if p := q.continuation.Swap(nil); p != nil {
		fn := *p
		q.invoker.Spawn(fn)
	}
}

// Len reports the number of elements currently held in the ring, plus one
// for a pending slack value. Intended for tests and diagnostics only.
func (q *TransportQueue[T]) Len() int {
	s := &q.state
	s.lock.Lock()
	defer s.lock.Unlock()
	n := s.size
	if s.hasSlack {
		n++
	}
	return n
}
