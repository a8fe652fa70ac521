package tickrt

import (
	"runtime"
	"sync/atomic"
)

// QueueCapacity is the fixed size of the deferred call queue. One slot is
// held back to disambiguate full from empty using only the two indices, so
// at most QueueCapacity-1 entries may be pending.
const QueueCapacity = 32

// ID is an opaque token identifying a deferred call or a timer. Sequence
// and generation counters are signed and wrap at overflow, matching the
// slot-reuse guard in TimerDel.
type ID int32

// Callback is invoked with the opaque context it was registered with and
// the id assigned at enqueue (or timer-add) time. Callbacks run on the
// drain context, never on the tick callback.
type Callback func(ctx any, id ID)

// deferredCall is one pending invocation. The context is caller-owned; the
// queue clears its reference as soon as the entry is read out.
type deferredCall struct {
	fn  Callback
	ctx any
	id  ID
}

// callQueue is the fixed-capacity circular buffer of deferred calls.
//
// Concurrency Model: MPSC (Multiple Producers, Single Consumer)
//   - enqueue: called from any goroutine, including the tick callback
//   - drainOne: called ONLY from the drain context
//
// The put/get counters are free-running; slot index is counter modulo
// QueueCapacity and the pending count is put-get. A producer claims a slot
// with a single CAS increment of put, writes the entry, then publishes it
// by storing the claim counter+1 into the slot's seq. The consumer accepts
// a slot only once its seq matches, so a half-written entry is never read.
// Only drainOne advances get.
type callQueue struct {
	slots [QueueCapacity]deferredCall
	seq   [QueueCapacity]atomic.Uint32 // publication guard per slot
	put   atomic.Uint32                // producer counter (claim via CAS)
	get   atomic.Uint32                // consumer counter (drain only)
	count atomic.Int32                 // last assigned sequence id
}

// length returns the number of pending entries. May be momentarily stale
// under concurrent modification.
func (q *callQueue) length() int {
	return int(q.put.Load() - q.get.Load())
}

// nextSeq assigns the next sequence id, wrapping to zero at signed
// overflow.
func (q *callQueue) nextSeq() ID {
	for {
		v := q.count.Load()
		n := v + 1
		if n < 0 {
			n = 0
		}
		if q.count.CompareAndSwap(v, int32(n)) {
			return ID(n)
		}
	}
}

// enqueue pushes an entry with the given id. Returns false when the queue
// is at its high-water mark (QueueCapacity-1 pending); queue state is not
// mutated in that case.
func (q *callQueue) enqueue(fn Callback, ctx any, id ID) bool {
	for {
		p := q.put.Load()
		if p-q.get.Load() >= QueueCapacity-1 {
			return false
		}
		if q.put.CompareAndSwap(p, p+1) {
			// Write the entry first, publish second: the seq store is the
			// release barrier the consumer acquires on.
			s := &q.slots[p%QueueCapacity]
			s.fn = fn
			s.ctx = ctx
			s.id = id
			q.seq[p%QueueCapacity].Store(p + 1)
			return true
		}
	}
}

// drainOne pops the oldest entry and invokes its handler. The slot is
// cleared before the handler runs, so a handler that re-enters enqueue can
// never observe a half-read entry. Returns whether an entry was processed.
func (q *callQueue) drainOne() bool {
	g := q.get.Load()
	if g == q.put.Load() {
		return false
	}

	// A producer has claimed this slot; its publish is imminent.
	idx := g % QueueCapacity
	for q.seq[idx].Load() != g+1 {
		runtime.Gosched()
	}

	s := &q.slots[idx]
	call := *s

	// Free the queue entry before calling the handler.
	s.fn = nil
	s.ctx = nil
	s.id = 0
	q.seq[idx].Store(0)
	q.get.Store(g + 1)

	if call.fn != nil {
		call.fn(call.ctx, call.id)
	}
	return true
}

// reset discards all pending entries. Called on shutdown; the counters stay
// monotonic so racing producers cannot corrupt the pending count.
func (q *callQueue) reset() {
	q.get.Store(q.put.Load())
}
