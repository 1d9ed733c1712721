package pipeline

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of the stream pipeline. Exactly one live
// controller exists per process and only it drives transitions.
type State int

const (
	// StateIdle is the initial and post-shutdown state.
	StateIdle State = iota
	// StateReady means the graph is assembled and prerolling.
	StateReady
	// StatePlaying means frames are flowing.
	StatePlaying
	// StateStopped means the stream ended gracefully (end-of-stream).
	StateStopped
	// StateFailed means the stream terminated on error. Terminal: only a
	// shutdown leaves it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// machine validates lifecycle transitions. It is a pure component so the
// state rules are testable without a media framework.
//
// Allowed: Idle -> Ready -> Playing -> Stopped | Failed. Shutdown drives any
// state back to Idle. No transition skips Ready.
type machine struct {
	mu    sync.Mutex
	state State
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) to(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if next == StateIdle {
		// Shutdown path, always permitted.
		m.state = StateIdle
		return nil
	}

	allowed := map[State]State{
		StateReady:   StateIdle,
		StatePlaying: StateReady,
		StateStopped: StatePlaying,
		StateFailed:  StatePlaying,
	}
	if from, ok := allowed[next]; !ok || m.state != from {
		return fmt.Errorf("pipeline: invalid transition %s -> %s", m.state, next)
	}
	m.state = next
	return nil
}
