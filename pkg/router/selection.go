package router

import (
	"sync"
)

// Selection is the process-wide choice of group relay. Every change bumps the
// version, and cached results stamped with an older version are stale.
type Selection struct {
	mx      sync.RWMutex
	relay   string
	version uint64
}

// NewSelection starts at version 1 with the given relay selected.
func NewSelection(relay string) *Selection {
	return &Selection{relay: relay, version: 1}
}

// Current returns the selected relay and the version it was selected at.
func (s *Selection) Current() (relay string, version uint64) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.relay, s.version
}

// Relay returns the selected relay.
func (s *Selection) Relay() string {
	r, _ := s.Current()
	return r
}

// Version returns the current selection version.
func (s *Selection) Version() uint64 {
	_, v := s.Current()
	return v
}

// Select changes the selected relay and returns the new version. Selecting
// the same relay again still bumps the version.
func (s *Selection) Select(relay string) (version uint64) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.relay = relay
	s.version++
	return s.version
}
