package artnet

import "sync"

// State keeps the last value written to every channel of every universe.
type State struct {
	mu        sync.Mutex
	universes UniverseStateMap
}

func NewState() *State {
	return &State{universes: UniverseStateMap{}}
}

func (s *State) SetChannel(universe, channel uint16, value uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.universes[universe]
	u[channel] = value
	s.universes[universe] = u
}

// Universe returns a copy of one universe.
func (s *State) Universe(universe uint16) Universe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.universes[universe]
}
