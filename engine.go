package tickrt

import (
	"sync"
	"time"
)

const (
	// TimerSlots is the fixed size of the timer table.
	TimerSlots = 16

	// DefaultTickPeriod is the granularity of the tick source, and the
	// bound on timer jitter.
	DefaultTickPeriod = time.Millisecond
)

// timerSlot is one logical timeout. A slot with a nil fn is free.
type timerSlot struct {
	fn        Callback
	ctx       any
	id        ID
	remaining time.Duration
}

// timerEngine multiplexes the timer table onto a single periodic tick
// source using a delta-queue: the tick is only ever pending for the
// smallest remaining delay, and the table is re-synchronised against
// elapsed time on every add and every sweep.
//
// All state is guarded by mu. Mutations keep the disarm/mutate/rearm
// bracketing inside the critical section; the lock is what actually
// excludes the tick callback from a concurrent add or delete, since
// disarming cannot stop a callback that is already in flight.
type timerEngine struct {
	mu sync.Mutex

	slots [TimerSlots]timerSlot

	// gen advances by TimerSlots on every add, so a slot's fresh id always
	// differs from any id its index held before. It wraps at signed
	// overflow, restarting at TimerSlots so a live id can never collide
	// with the zero "no timer" sentinel.
	gen ID

	activeDelay time.Duration // delay the tick was last armed for
	countdown   time.Duration // time left until the sweep acts
	idle        bool          // no slot active, tick disarmed

	tick   TickSource
	period time.Duration

	// fire pushes an expired timer into the deferred call queue. Must not
	// block; it runs under mu on the tick callback.
	fire func(fn Callback, ctx any, id ID)
}

func (e *timerEngine) init(tick TickSource, period time.Duration, fire func(Callback, any, ID)) {
	e.tick = tick
	e.period = period
	e.fire = fire
	e.idle = true
}

// freeSlot returns the index of the first free slot, or -1.
func (e *timerEngine) freeSlot() int {
	for i := range e.slots {
		if e.slots[i].fn == nil {
			return i
		}
	}
	return -1
}

// add arms a new logical timer. Returns ErrNoFreeTimerSlot when the table
// is fully occupied.
func (e *timerEngine) add(delay time.Duration, fn Callback, ctx any) (ID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.freeSlot()
	if i < 0 {
		return 0, ErrNoFreeTimerSlot
	}

	e.gen += TimerSlots
	if e.gen < 0 {
		e.gen = TimerSlots
	}

	s := &e.slots[i]
	s.fn = fn
	s.ctx = ctx
	s.id = e.gen + ID(i)
	s.remaining = delay

	e.trigger(delay, s.id)

	return s.id, nil
}

// trigger re-synchronises the table and re-arms the tick so it is pending
// for the smallest remaining delay.
//
// If the engine was already busy, `activeDelay - countdown` is the time
// that actually passed since the tick was last armed; it is subtracted
// from every other active slot (the new slot already holds the caller's
// exact delay), then the tick is re-armed for whichever is smaller: the
// time left on the pending tick, or the new delay.
func (e *timerEngine) trigger(delay time.Duration, id ID) {
	if e.idle {
		e.activeDelay = delay
		e.idle = false
	} else {
		e.tick.Disarm()
		remaining := e.countdown
		done := e.activeDelay - remaining

		for i := range e.slots {
			s := &e.slots[i]
			if s.remaining > 0 && s.id != id {
				s.remaining -= done
			}
		}

		if remaining < delay {
			e.activeDelay = remaining
		} else {
			e.activeDelay = delay
		}
	}

	e.countdown = e.activeDelay
	e.tick.Arm(e.period, true)
}

// del cancels the timer with the given id. Idempotent: a stale or unknown
// id is silently ignored. Note the elapsed-time redistribution performed
// by add is deliberately not repeated here; disarm+rearm at the unchanged
// activeDelay/countdown is a no-op in elapsed time.
func (e *timerEngine) del(id ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tick.Disarm()
	deleted := false
	if id > 0 {
		s := &e.slots[int(id)%TimerSlots]
		if s.id == id {
			s.fn = nil
			s.ctx = nil
			s.id = 0
			deleted = true
		}
	}
	e.tick.Arm(e.period, true)
	return deleted
}

// sweep runs on every physical tick. Once the countdown reaches zero the
// amount that just fully elapsed (activeDelay) is subtracted from every
// occupied slot; expired slots fire into the deferred call queue in
// ascending slot-index order and are freed, and the tick is re-armed for
// the smallest surviving delay, or the engine goes idle.
func (e *timerEngine) sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.countdown -= e.period

	if e.countdown > 0 {
		return
	}

	e.tick.Disarm()

	dt := e.activeDelay
	e.activeDelay = 0

	for i := range e.slots {
		s := &e.slots[i]
		if s.fn == nil {
			continue
		}
		s.remaining -= dt
		if s.remaining <= 0 {
			e.fire(s.fn, s.ctx, s.id)
			s.fn = nil
			s.ctx = nil
			s.id = 0
		} else if e.activeDelay <= 0 || e.activeDelay > s.remaining {
			e.activeDelay = s.remaining
		}
	}

	if e.activeDelay > 0 {
		e.countdown = e.activeDelay
		e.tick.Arm(e.period, true)
	} else {
		e.idle = true
	}
}

// stop disarms the tick. Slots are left as-is; in-flight expiries that
// already reached the queue still fire.
func (e *timerEngine) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick.Disarm()
	e.idle = true
}

// active returns the number of occupied slots.
func (e *timerEngine) active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for i := range e.slots {
		if e.slots[i].fn != nil {
			n++
		}
	}
	return n
}
