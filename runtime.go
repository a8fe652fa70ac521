package tickrt

import (
	"context"
	"sync"
	"time"
)

// Runtime ties together the deferred call queue, the timer engine, and the
// drain loop. Construct with [New]; the zero value is not usable.
type Runtime struct {
	queue  callQueue
	engine timerEngine
	tick   TickSource
	period time.Duration

	// notify is the work-pending target: either the internal runner or a
	// host-supplied TaskRunner.
	notify TaskRunner
	// runner is non-nil only when the runtime owns its drain loop.
	runner *Runner

	state        stateMachine
	diag         *diagnostics
	stats        statCounters
	start        time.Time
	shutdownOnce sync.Once
}

// New builds a Runtime, registers the tick callback with the tick source,
// and leaves the timer engine idle (the tick source stays disarmed until
// the first timer is added).
func New(opts ...Option) (*Runtime, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		tick:   cfg.tick,
		period: cfg.period,
		start:  time.Now(),
	}
	rt.diag = newDiagnostics(cfg.logger, cfg.warnRates, &rt.stats)
	rt.engine.init(cfg.tick, cfg.period, rt.queueExpired)
	cfg.tick.SetCallback(rt.onTick)

	if cfg.runner != nil {
		rt.notify = cfg.runner
	} else {
		rt.runner = newRunner(rt.DrainOne)
		rt.notify = rt.runner
	}

	cfg.logger.Debug().
		Dur("period", cfg.period).
		Int("queueCapacity", QueueCapacity).
		Int("timerSlots", TimerSlots).
		Log("runtime initialised")

	return rt, nil
}

// Enqueue submits fn for deferred execution and returns the sequence id it
// will be invoked with. Safe to call from any goroutine, including from a
// handler already running on the drain loop.
//
// Returns [ErrShutdown] after [Runtime.Shutdown], and [ErrQueueFull] when
// the queue is at capacity; a full queue does not consume the submission.
func (rt *Runtime) Enqueue(fn Callback, ctx any) (ID, error) {
	if fn == nil {
		return 0, ErrNilCallback
	}
	if rt.state.Load() == StateShutdown {
		return 0, ErrShutdown
	}
	id := rt.queue.nextSeq()
	if err := rt.push(fn, ctx, id); err != nil {
		return 0, err
	}
	return id, nil
}

// push is the shared enqueue path for both public submissions and timer
// expiry. It performs no shutdown check: a timer that expires during
// teardown still takes this path, and the subsequent queue reset discards
// it.
func (rt *Runtime) push(fn Callback, ctx any, id ID) error {
	if !rt.queue.enqueue(fn, ctx, id) {
		rt.stats.dropped.Add(1)
		rt.diag.queueFull(rt.queue.length())
		return ErrQueueFull
	}
	rt.stats.enqueued.Add(1)
	rt.diag.queueOK()
	rt.notify.NotifyWorkPending()
	return nil
}

// queueExpired is the timer engine's fire hook, invoked with engine.mu held
// from the tick callback.
func (rt *Runtime) queueExpired(fn Callback, ctx any, id ID) {
	rt.stats.timersFired.Add(1)
	_ = rt.push(fn, ctx, id)
}

// onTick is the tick source callback.
func (rt *Runtime) onTick() {
	rt.stats.ticks.Add(1)
	rt.engine.sweep()
}

// TimerAdd registers fn to be queued after delay, rounded up to the tick
// period, and returns the timer id for use with [Runtime.TimerDel].
//
// Returns [ErrShutdown] during teardown and [ErrNoFreeTimerSlot] when all
// slots are occupied.
func (rt *Runtime) TimerAdd(delay time.Duration, fn Callback, ctx any) (ID, error) {
	if fn == nil {
		return 0, ErrNilCallback
	}
	if rt.state.Load() == StateShutdown {
		return 0, ErrShutdown
	}
	id, err := rt.engine.add(delay, fn, ctx)
	if err != nil {
		rt.stats.timersRejected.Add(1)
		rt.diag.timerBusy()
		return 0, err
	}
	rt.stats.timersAdded.Add(1)
	rt.diag.timerOK()
	return id, nil
}

// TimerDel cancels the timer with the given id. Stale or already-fired ids
// are a no-op, so it is always safe to delete a timer that may have
// expired. Reports whether a timer was actually removed.
func (rt *Runtime) TimerDel(id ID) bool {
	if rt.engine.del(id) {
		rt.stats.timersCanceled.Add(1)
		return true
	}
	return false
}

// DrainOne dispatches at most one pending deferred call on the calling
// goroutine and reports whether one was dispatched. Hosts that installed
// their own [TaskRunner] call this from their scheduling loop; otherwise
// [Runtime.Run] drives it.
func (rt *Runtime) DrainOne() bool {
	if !rt.queue.drainOne() {
		return false
	}
	rt.stats.drained.Add(1)
	return true
}

// Run blocks, dispatching deferred calls until ctx is cancelled or
// [Runtime.Shutdown] is called. Returns [ErrExternalRunner] when the host
// owns the drain loop via [WithTaskRunner].
func (rt *Runtime) Run(ctx context.Context) error {
	if rt.runner == nil {
		return ErrExternalRunner
	}
	return rt.runner.Run(ctx)
}

// Shutdown stops the runtime: new submissions are refused, the tick source
// is disarmed, pending deferred calls are discarded, and the internal run
// loop (if any) is released. Idempotent.
func (rt *Runtime) Shutdown() {
	rt.shutdownOnce.Do(func() {
		rt.state.Store(StateShutdown)
		rt.engine.stop()
		rt.queue.reset()
		if rt.runner != nil {
			rt.runner.shutdown()
		}
		rt.diag.logger.Debug().
			Dur("uptime", rt.Uptime()).
			Uint64("drained", rt.stats.drained.Load()).
			Log("runtime shut down")
	})
}

// Stats returns a snapshot of the runtime's activity counters.
func (rt *Runtime) Stats() Stats {
	s := rt.stats.snapshot()
	s.PendingCalls = rt.queue.length()
	s.ActiveTimers = rt.engine.active()
	return s
}

// Uptime reports the time elapsed since [New].
func (rt *Runtime) Uptime() time.Duration {
	return time.Since(rt.start)
}
