package tickrt

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickSource abstracts the single periodic tick the host platform exposes.
//
// Contract:
//   - The callback fires no more often than once per armed period
//   - The callback never runs concurrently with itself
//   - SetCallback is called once, before the first Arm
type TickSource interface {
	// SetCallback registers the function invoked on every tick.
	SetCallback(fn func())
	// Arm starts the tick with the given period. When repeating is false
	// the callback fires once and the source disarms itself.
	Arm(period time.Duration, repeating bool)
	// Disarm stops the tick. It does not wait for an in-flight callback.
	Disarm()
}

// TickerSource is the production TickSource, driving the callback from a
// time.Ticker on a dedicated goroutine.
//
// Disarm only signals the dispatch goroutine; it deliberately does not join
// it, because Disarm is called with the timer engine's lock held and the
// callback takes that same lock. Callback serialisation is enforced with a
// separate dispatch mutex instead.
type TickerSource struct {
	mu   sync.Mutex // guards fn/stop
	fn   func()
	stop chan struct{}

	// runMu serialises callback invocation across arm cycles.
	runMu sync.Mutex
}

// NewTickerSource returns a disarmed TickerSource.
func NewTickerSource() *TickerSource {
	return &TickerSource{}
}

// SetCallback registers the tick callback.
func (s *TickerSource) SetCallback(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
}

// Arm starts (or restarts) the tick.
func (s *TickerSource) Arm(period time.Duration, repeating bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()

	fn := s.fn
	if fn == nil {
		return
	}

	stop := make(chan struct{})
	s.stop = stop

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				s.dispatch(fn, stop)
				if !repeating {
					return
				}
			}
		}
	}()
}

// dispatch invokes the callback under runMu, unless the arm cycle was
// cancelled while waiting for the previous invocation to finish.
func (s *TickerSource) dispatch(fn func(), stop chan struct{}) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	select {
	case <-stop:
		return
	default:
	}
	fn()
}

// Disarm stops the tick.
func (s *TickerSource) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked()
}

func (s *TickerSource) disarmLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// ManualTickSource is a deterministic TickSource for tests and simulation:
// ticks are delivered synchronously by Fire rather than by the wall clock.
//
// Arm state is tracked with atomics so the tick callback itself may re-arm
// or disarm the source without deadlocking Fire.
type ManualTickSource struct {
	fn        func()
	armed     atomic.Bool
	repeating atomic.Bool
	period    atomic.Int64 // time.Duration
	armCount  atomic.Int64
}

// NewManualTickSource returns a disarmed ManualTickSource.
func NewManualTickSource() *ManualTickSource {
	return &ManualTickSource{}
}

// SetCallback registers the tick callback. Must be called before Fire.
func (s *ManualTickSource) SetCallback(fn func()) {
	s.fn = fn
}

// Arm marks the source armed with the given period.
func (s *ManualTickSource) Arm(period time.Duration, repeating bool) {
	s.period.Store(int64(period))
	s.repeating.Store(repeating)
	s.armed.Store(true)
	s.armCount.Add(1)
}

// Disarm marks the source disarmed.
func (s *ManualTickSource) Disarm() {
	s.armed.Store(false)
}

// Armed reports whether the source is currently armed.
func (s *ManualTickSource) Armed() bool {
	return s.armed.Load()
}

// Period returns the period the source was last armed with.
func (s *ManualTickSource) Period() time.Duration {
	return time.Duration(s.period.Load())
}

// ArmCount returns the number of Arm calls observed.
func (s *ManualTickSource) ArmCount() int64 {
	return s.armCount.Load()
}

// Fire delivers n ticks synchronously. Delivery stops early if a callback
// disarms the source (or it is one-shot). Returns the number delivered.
func (s *ManualTickSource) Fire(n int) int {
	delivered := 0
	for i := 0; i < n; i++ {
		if !s.armed.Load() || s.fn == nil {
			break
		}
		if !s.repeating.Load() {
			s.armed.Store(false)
		}
		s.fn()
		delivered++
	}
	return delivered
}

// Advance delivers as many ticks as fit in d at the armed period. It is a
// convenience for tests expressing elapsed time rather than tick counts.
func (s *ManualTickSource) Advance(d time.Duration) int {
	p := s.Period()
	if p <= 0 {
		return 0
	}
	return s.Fire(int(d / p))
}
