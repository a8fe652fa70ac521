package tickrt

import "errors"

// Standard errors.
var (
	// ErrNilCallback is returned by Enqueue and TimerAdd when fn is nil.
	ErrNilCallback = errors.New("tickrt: nil callback")

	// ErrQueueFull is returned by Enqueue when the deferred call queue has
	// reached its high-water mark (QueueCapacity-1 pending entries).
	// Transient: the caller may retry after the queue drains, or drop.
	ErrQueueFull = errors.New("tickrt: deferred call queue is full")

	// ErrNoFreeTimerSlot is returned by TimerAdd when every timer slot is
	// occupied. Transient: slots free on expiry or explicit delete.
	ErrNoFreeTimerSlot = errors.New("tickrt: all timer slots are busy")

	// ErrShutdown is returned by Enqueue and TimerAdd after Shutdown has
	// been called. Terminal for the call; the runtime is tearing down.
	ErrShutdown = errors.New("tickrt: runtime is shutting down")

	// ErrRunnerAlreadyRunning is returned when Run is called while the
	// drain loop is already active.
	ErrRunnerAlreadyRunning = errors.New("tickrt: runner is already running")

	// ErrRunnerTerminated is returned when Run is called after the runner
	// has been stopped by Shutdown.
	ErrRunnerTerminated = errors.New("tickrt: runner has been terminated")

	// ErrExternalRunner is returned by Runtime.Run when the host installed
	// its own TaskRunner via WithTaskRunner and therefore owns the drain
	// loop.
	ErrExternalRunner = errors.New("tickrt: host owns the task runner")
)
