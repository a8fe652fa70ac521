package tickrt

import "sync/atomic"

// statCounters are the internal counters backing [Runtime.Stats]. All fields
// are atomics so producers, the tick callback, and the drainer can bump them
// without shared locks.
type statCounters struct {
	ticks          atomic.Uint64
	enqueued       atomic.Uint64
	drained        atomic.Uint64
	dropped        atomic.Uint64
	timersAdded    atomic.Uint64
	timersFired    atomic.Uint64
	timersCanceled atomic.Uint64
	timersRejected atomic.Uint64

	queueFullEpisodes atomic.Uint64
	timerBusyEpisodes atomic.Uint64
}

// Stats is a point-in-time snapshot of the runtime's activity counters.
//
// Counters are sampled individually, so a snapshot taken while the runtime
// is busy may be internally skewed by a few events. Treat it as an
// operational report, not a consistent cut.
type Stats struct {
	// Ticks is the number of hardware tick callbacks observed while armed.
	Ticks uint64

	// Enqueued counts deferred calls accepted into the queue, including
	// those queued by expiring timers.
	Enqueued uint64

	// Drained counts deferred calls dispatched to their handlers.
	Drained uint64

	// Dropped counts enqueue attempts rejected because the queue was full.
	Dropped uint64

	// TimersAdded counts successful timer registrations.
	TimersAdded uint64

	// TimersFired counts timers that expired and queued their callback.
	TimersFired uint64

	// TimersCanceled counts timers removed by [Runtime.TimerDel] before
	// they fired.
	TimersCanceled uint64

	// TimersRejected counts registrations refused for want of a free slot.
	TimersRejected uint64

	// QueueFullEpisodes counts distinct full-queue episodes, where an
	// episode ends on the next successful enqueue.
	QueueFullEpisodes uint64

	// TimerBusyEpisodes counts distinct slot-exhaustion episodes.
	TimerBusyEpisodes uint64

	// PendingCalls is the number of deferred calls currently waiting.
	PendingCalls int

	// ActiveTimers is the number of occupied timer slots.
	ActiveTimers int
}

func (c *statCounters) snapshot() Stats {
	return Stats{
		Ticks:             c.ticks.Load(),
		Enqueued:          c.enqueued.Load(),
		Drained:           c.drained.Load(),
		Dropped:           c.dropped.Load(),
		TimersAdded:       c.timersAdded.Load(),
		TimersFired:       c.timersFired.Load(),
		TimersCanceled:    c.timersCanceled.Load(),
		TimersRejected:    c.timersRejected.Load(),
		QueueFullEpisodes: c.queueFullEpisodes.Load(),
		TimerBusyEpisodes: c.timerBusyEpisodes.Load(),
	}
}
