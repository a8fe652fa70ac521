package tickrt

import (
	"context"
	"sync/atomic"
)

// TaskRunner receives work-pending notifications from the runtime. The
// default implementation is [Runner]; hosts with their own scheduling loop
// supply a replacement via [WithTaskRunner] and drain with
// [Runtime.DrainOne].
//
// NotifyWorkPending may be called from any goroutine, including the tick
// callback, and must not block.
type TaskRunner interface {
	NotifyWorkPending()
}

// Runner is the default drain loop. It parks on a wake channel until
// notified, then drains the deferred call queue to empty, one call at a
// time, on the goroutine that called [Runner.Run].
//
// Notifications are deduplicated: any number of NotifyWorkPending calls
// while work is already signalled collapse into a single wake.
type Runner struct {
	drain       func() bool
	wake        chan struct{}
	stop        chan struct{}
	wakePending atomic.Uint32
	state       stateMachine
}

func newRunner(drain func() bool) *Runner {
	return &Runner{
		drain: drain,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
}

// NotifyWorkPending wakes the run loop. Safe to call concurrently; no-op if
// a wake is already pending.
func (r *Runner) NotifyWorkPending() {
	if r.wakePending.CompareAndSwap(0, 1) {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

// Run blocks, dispatching deferred calls as they arrive, until ctx is
// cancelled or the runtime shuts down. On cancellation it drains any calls
// already queued before returning ctx.Err(). Returns
// [ErrRunnerAlreadyRunning] if another Run is in progress, and
// [ErrRunnerTerminated] once the runner has been shut down.
func (r *Runner) Run(ctx context.Context) error {
	if !r.state.tryTransition(StateActive, StateRunning) {
		if r.state.Load() == StateShutdown {
			return ErrRunnerTerminated
		}
		return ErrRunnerAlreadyRunning
	}
	defer r.state.tryTransition(StateRunning, StateActive)

	for {
		select {
		case <-r.wake:
			// Clear the pending flag before draining, so an enqueue racing
			// with the drain is guaranteed either a fresh wake or pickup by
			// this pass.
			r.wakePending.Store(0)
			for r.drain() {
			}
		case <-ctx.Done():
			for r.drain() {
			}
			return ctx.Err()
		case <-r.stop:
			for r.drain() {
			}
			return nil
		}
	}
}

// shutdown releases Run and fails any future Run with ErrRunnerTerminated.
func (r *Runner) shutdown() {
	for {
		s := r.state.Load()
		if s == StateShutdown {
			return
		}
		if r.state.tryTransition(s, StateShutdown) {
			close(r.stop)
			return
		}
	}
}
