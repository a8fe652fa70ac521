package tickrt

import (
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Diagnostic categories, used both as log fields and as rate limiter keys.
const (
	diagQueueFull = "queue-full"
	diagTimerBusy = "timer-slots"
)

// diagnostics implements the one-shot warning policy for the transient
// overload conditions: each condition is reported once per episode
// (edge-triggered latch, reset by the next successful operation of the
// same kind), and episodes themselves are rate limited per category so
// oscillating load cannot flood the output either.
type diagnostics struct {
	logger  *logiface.Logger[logiface.Event]
	limiter *catrate.Limiter
	stats   *statCounters

	queueFullLatched atomic.Bool
	timerBusyLatched atomic.Bool
}

func newDiagnostics(logger *logiface.Logger[logiface.Event], rates map[time.Duration]int, stats *statCounters) *diagnostics {
	d := &diagnostics{
		logger: logger,
		stats:  stats,
	}
	if len(rates) > 0 {
		d.limiter = catrate.NewLimiter(rates)
	}
	return d
}

// queueFull latches the queue-full condition, emitting at most one warning
// per episode.
func (d *diagnostics) queueFull(pending int) {
	if !d.queueFullLatched.CompareAndSwap(false, true) {
		return
	}
	d.stats.queueFullEpisodes.Add(1)
	if !d.allow(diagQueueFull) {
		return
	}
	d.logger.Warning().
		Str("category", diagQueueFull).
		Int("pending", pending).
		Log("deferred call queue is full")
}

// queueOK resets the queue-full latch. Called on every successful enqueue.
func (d *diagnostics) queueOK() {
	d.queueFullLatched.Store(false)
}

// timerBusy latches the slot-exhaustion condition.
func (d *diagnostics) timerBusy() {
	if !d.timerBusyLatched.CompareAndSwap(false, true) {
		return
	}
	d.stats.timerBusyEpisodes.Add(1)
	if !d.allow(diagTimerBusy) {
		return
	}
	d.logger.Warning().
		Str("category", diagTimerBusy).
		Int("slots", TimerSlots).
		Log("all timer slots are busy")
}

// timerOK resets the slot-exhaustion latch. Called on every successful add.
func (d *diagnostics) timerOK() {
	d.timerBusyLatched.Store(false)
}

func (d *diagnostics) allow(category string) bool {
	if d.limiter == nil {
		return true
	}
	_, ok := d.limiter.Allow(category)
	return ok
}
