package tickrt

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T, opts ...Option) (*Runtime, *ManualTickSource) {
	t.Helper()
	tick := NewManualTickSource()
	rt, err := New(append([]Option{WithTickSource(tick)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(rt.Shutdown)
	return rt, tick
}

func TestRuntime_enqueueAndDrain(t *testing.T) {
	rt, _ := newTestRuntime(t)

	var got []ID
	record := func(_ any, id ID) { got = append(got, id) }

	var ids []ID
	for i := 0; i < 3; i++ {
		id, err := rt.Enqueue(record, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for rt.DrainOne() {
	}

	assert.Equal(t, ids, got)
	s := rt.Stats()
	assert.Equal(t, uint64(3), s.Enqueued)
	assert.Equal(t, uint64(3), s.Drained)
	assert.Equal(t, 0, s.PendingCalls)
}

func TestRuntime_enqueuePassesContext(t *testing.T) {
	rt, _ := newTestRuntime(t)

	type payload struct{ n int }
	want := &payload{n: 42}

	var got any
	_, err := rt.Enqueue(func(ctx any, _ ID) { got = ctx }, want)
	require.NoError(t, err)
	require.True(t, rt.DrainOne())
	assert.Same(t, want, got)
}

func TestRuntime_nilCallbackRejected(t *testing.T) {
	rt, _ := newTestRuntime(t)

	_, err := rt.Enqueue(nil, nil)
	assert.ErrorIs(t, err, ErrNilCallback)
	_, err = rt.TimerAdd(time.Second, nil, nil)
	assert.ErrorIs(t, err, ErrNilCallback)
}

func TestRuntime_timerExpiryQueuesCallback(t *testing.T) {
	rt, tick := newTestRuntime(t)

	var got []ID
	id, err := rt.TimerAdd(5*time.Millisecond, func(_ any, id ID) { got = append(got, id) }, nil)
	require.NoError(t, err)
	require.Positive(t, id)

	tick.Advance(4 * time.Millisecond)
	assert.False(t, rt.DrainOne(), "timer queued early")

	tick.Advance(time.Millisecond)
	require.True(t, rt.DrainOne())
	assert.Equal(t, []ID{id}, got)

	s := rt.Stats()
	assert.Equal(t, uint64(1), s.TimersAdded)
	assert.Equal(t, uint64(1), s.TimersFired)
	assert.Equal(t, uint64(5), s.Ticks)
	assert.Equal(t, 0, s.ActiveTimers)
}

func TestRuntime_timerDel(t *testing.T) {
	rt, tick := newTestRuntime(t)

	fired := false
	id, err := rt.TimerAdd(5*time.Millisecond, func(any, ID) { fired = true }, nil)
	require.NoError(t, err)

	assert.True(t, rt.TimerDel(id))
	assert.False(t, rt.TimerDel(id), "second delete of the same id")

	tick.Advance(20 * time.Millisecond)
	assert.False(t, rt.DrainOne())
	assert.False(t, fired)
	assert.Equal(t, uint64(1), rt.Stats().TimersCanceled)
}

func TestRuntime_shutdownRejectsNewWork(t *testing.T) {
	rt, tick := newTestRuntime(t)

	_, err := rt.TimerAdd(time.Second, func(any, ID) {}, nil)
	require.NoError(t, err)
	_, err = rt.Enqueue(func(any, ID) {}, nil)
	require.NoError(t, err)

	rt.Shutdown()
	rt.Shutdown() // idempotent

	_, err = rt.Enqueue(func(any, ID) {}, nil)
	assert.ErrorIs(t, err, ErrShutdown)
	_, err = rt.TimerAdd(time.Second, func(any, ID) {}, nil)
	assert.ErrorIs(t, err, ErrShutdown)

	assert.False(t, tick.Armed(), "tick still armed after shutdown")
	assert.False(t, rt.DrainOne(), "pending work survived shutdown")
	assert.ErrorIs(t, rt.Run(context.Background()), ErrRunnerTerminated)
}

func TestRuntime_queueFullLatchedWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithTimeField(``), stumpy.WithWriter(&buf)),
	).Logger()

	rt, _ := newTestRuntime(t,
		WithLogger(logger),
		WithWarningRates(nil), // latch only, no rate limit
	)

	noop := func(any, ID) {}
	for i := 0; i < QueueCapacity-1; i++ {
		_, err := rt.Enqueue(noop, nil)
		require.NoError(t, err)
	}

	// Repeated rejections within one episode log once.
	for i := 0; i < 3; i++ {
		_, err := rt.Enqueue(noop, nil)
		assert.ErrorIs(t, err, ErrQueueFull)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "deferred call queue is full"))

	s := rt.Stats()
	assert.Equal(t, uint64(3), s.Dropped)
	assert.Equal(t, uint64(1), s.QueueFullEpisodes)
	assert.Equal(t, QueueCapacity-1, s.PendingCalls)

	// A successful enqueue ends the episode; the next full condition
	// warns again.
	require.True(t, rt.DrainOne())
	_, err := rt.Enqueue(noop, nil)
	require.NoError(t, err)
	_, err = rt.Enqueue(noop, nil)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, strings.Count(buf.String(), "deferred call queue is full"))
	assert.Equal(t, uint64(2), rt.Stats().QueueFullEpisodes)
}

func TestRuntime_timerSlotExhaustionWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithTimeField(``), stumpy.WithWriter(&buf)),
	).Logger()

	rt, _ := newTestRuntime(t,
		WithLogger(logger),
		WithWarningRates(nil),
	)

	noop := func(any, ID) {}
	ids := make([]ID, 0, TimerSlots)
	for i := 0; i < TimerSlots; i++ {
		id, err := rt.TimerAdd(time.Second, noop, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for i := 0; i < 2; i++ {
		_, err := rt.TimerAdd(time.Second, noop, nil)
		assert.ErrorIs(t, err, ErrNoFreeTimerSlot)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "all timer slots are busy"))

	s := rt.Stats()
	assert.Equal(t, uint64(2), s.TimersRejected)
	assert.Equal(t, uint64(1), s.TimerBusyEpisodes)
	assert.Equal(t, TimerSlots, s.ActiveTimers)

	require.True(t, rt.TimerDel(ids[0]))
	_, err := rt.TimerAdd(time.Second, noop, nil)
	require.NoError(t, err)
}

func TestRuntime_runLoopDispatches(t *testing.T) {
	rt, tick := newTestRuntime(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- rt.Run(ctx) }()

	done := make(chan ID, 1)
	_, err := rt.TimerAdd(3*time.Millisecond, func(_ any, id ID) { done <- id }, nil)
	require.NoError(t, err)
	tick.Advance(3 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer callback never dispatched")
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

type notifyCounter struct{ n int }

func (c *notifyCounter) NotifyWorkPending() { c.n++ }

func TestRuntime_externalRunner(t *testing.T) {
	var runner notifyCounter
	rt, _ := newTestRuntime(t, WithTaskRunner(&runner))

	assert.ErrorIs(t, rt.Run(context.Background()), ErrExternalRunner)

	_, err := rt.Enqueue(func(any, ID) {}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, runner.n)

	require.True(t, rt.DrainOne())
	assert.False(t, rt.DrainOne())
}

func TestRuntime_uptime(t *testing.T) {
	rt, _ := newTestRuntime(t)
	assert.GreaterOrEqual(t, rt.Uptime(), time.Duration(0))
}
