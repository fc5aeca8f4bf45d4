package rig

import "sync"

// Stat keys used by the built-in tasks. Keys are prefixed with "rig:" to
// avoid collisions with user-defined counters.
const (
	// StatTrials counts completed trial stages.
	StatTrials = "rig:trials"

	// StatLaserTrials counts trials on which an intervention was bound.
	StatLaserTrials = "rig:laser_trials"

	// StatStimuliPlayed counts stimulus presentations.
	StatStimuliPlayed = "rig:stimuli_played"

	// StatLaserFiredFor is the prefix for per-script fire counts; append
	// the script id.
	StatLaserFiredFor = "rig:laser_fired:"
)

// SessionStats holds monotonically increasing counters for one task
// session: trials run, interventions bound, per-script fire counts. Tasks
// increment them; hooks and the operator console read them.
//
// All methods are safe for concurrent use, and a nil *SessionStats is a
// valid no-op receiver so tasks can run without stats collection.
type SessionStats struct {
	mu       sync.RWMutex
	counters map[string]int64
}

// NewSessionStats creates an empty SessionStats.
func NewSessionStats() *SessionStats {
	return &SessionStats{
		counters: make(map[string]int64),
	}
}

// Incr increments the counter for key by one.
func (s *SessionStats) Incr(key string) {
	s.Add(key, 1)
}

// Add increments the counter for key by delta.
func (s *SessionStats) Add(key string, delta int64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] += delta
}

// Get returns the counter for key, zero if never incremented.
func (s *SessionStats) Get(key string) int64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[key]
}

// Snapshot returns a copy of all counters.
func (s *SessionStats) Snapshot() map[string]int64 {
	if s == nil {
		return map[string]int64{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		snapshot[k] = v
	}
	return snapshot
}
