// Package tickrt provides a deferred-call queue and a software timer engine
// multiplexed onto a single periodic tick source, in the style of small
// interrupt-driven runtimes.
//
// # Architecture
//
// The package is built around a [Runtime] that owns two fixed-size tables:
//
//   - A deferred call queue: a 32-slot circular buffer of pending callbacks.
//     [Runtime.Enqueue] pushes work from any goroutine, including from timer
//     expiry; [Runtime.DrainOne] pops and invokes the oldest entry on the
//     host's chosen execution context.
//   - A timer engine: a 16-slot table of logical timeouts, multiplexed onto
//     one [TickSource] using a delta-queue. The tick is only ever armed for
//     the smallest remaining delay; every add re-synchronises the other
//     slots' remaining time, and every sweep subtracts the amount that just
//     elapsed, firing expired slots into the deferred call queue.
//
// The hardware analogue maps onto goroutines: the tick source callback plays
// the interrupt context, and whatever drains the queue plays the main loop.
// A built-in [Runner] provides the drain loop for hosts that don't have one;
// it blocks in [Runtime.Run] and is woken by enqueue notifications.
//
// # Timer Semantics
//
//   - [Runtime.TimerAdd] schedules a one-shot callback after a delay, with
//     bounded jitter of one tick period (default 1ms)
//   - [Runtime.TimerDel] cancels by id; it is idempotent, ignores stale ids
//     after slot reuse, and is best-effort against an in-flight expiry
//   - Timers expiring on the same sweep fire in ascending slot-index order
//
// # Thread Safety
//
//   - [Runtime.Enqueue], [Runtime.TimerAdd] and [Runtime.TimerDel] are safe
//     to call from any goroutine, including from the tick callback and from
//     within deferred call handlers
//   - [Runtime.DrainOne] must only be called from one goroutine at a time
//     (the task runner's drain context)
//
// # Usage
//
//	rt, err := tickrt.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Shutdown()
//
//	go rt.Run(ctx)
//
//	rt.TimerAdd(100*time.Millisecond, func(ctx any, id tickrt.ID) {
//	    fmt.Println("fired", id)
//	}, nil)
//
// # Error Types
//
// Failures are local and recoverable: [ErrQueueFull] and
// [ErrNoFreeTimerSlot] are transient (retry or drop), [ErrShutdown] is
// terminal for the call but not for the process. Diagnostics for the
// transient conditions are edge-triggered per episode and additionally
// rate-limited, so sustained overload cannot flood the log output.
package tickrt
