package core

import "sync"

// State holds the single source of truth for the client: whether the control
// session is up and which lighting configuration owns the strip. It is
// written by the agent's event loop and read by anything that needs a
// snapshot, such as the MQTT mirror on (re)connect.
type State struct {
	mu             sync.RWMutex
	Connected      bool
	RunningPattern string
	Strobe         bool
}

// NewState creates a new State instance.
func NewState() *State {
	return &State{}
}

// Clone returns a snapshot of the current state for safe reading.
func (s *State) Clone() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Connected:      s.Connected,
		RunningPattern: s.RunningPattern,
		Strobe:         s.Strobe,
	}
}

// SetConnected updates the control session state.
func (s *State) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Connected = connected
}

// SetRunningPattern updates the active lighting configuration.
func (s *State) SetRunningPattern(pattern string, strobe bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RunningPattern = pattern
	s.Strobe = strobe
}
