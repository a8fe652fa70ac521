package tickrt

import "sync/atomic"

// State represents the lifecycle state of the runtime or of its drain loop.
//
// State Machine:
//
//	StateActive (0) → StateRunning (1)    [Run, drain loop only]
//	StateRunning (1) → StateActive (0)    [Run returns on ctx cancellation]
//	StateActive (0) → StateShutdown (2)   [Shutdown]
//	StateRunning (1) → StateShutdown (2)  [Shutdown]
//	StateShutdown (2) → (terminal)
//
// Transition Rules:
//   - Use tryTransition (CAS) for reversible states (Active, Running)
//   - Use store only for the irreversible Shutdown state
type State uint32

const (
	// StateActive indicates work is being accepted.
	StateActive State = 0
	// StateRunning indicates the drain loop is executing (Runner only).
	StateRunning State = 1
	// StateShutdown indicates the rejection flag is set; all subsequent
	// Enqueue and TimerAdd calls fail with ErrShutdown.
	StateShutdown State = 2
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateRunning:
		return "Running"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// stateMachine is a lock-free lifecycle flag shared between the producing
// contexts and the drain context.
type stateMachine struct {
	v atomic.Uint32
}

// Load returns the current state atomically.
func (s *stateMachine) Load() State {
	return State(s.v.Load())
}

// Store atomically stores a new state. Reserved for irreversible
// transitions; reversible ones must go through tryTransition.
func (s *stateMachine) Store(state State) {
	s.v.Store(uint32(state))
}

// tryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was performed.
func (s *stateMachine) tryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
