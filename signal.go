package rig

import (
	"context"
	"sync"
)

// StageSignal is the binary synchronization primitive that gates progression
// from one trial stage to the next. The task loop blocks on Wait (or
// WaitContext) after each stage; the inter-stimulus-interval timer calls Set
// to release it, and the next stage calls Clear on entry so the loop does
// not free-run.
//
// All methods are safe for concurrent use. Set and Clear are idempotent.
type StageSignal struct {
	mu  sync.Mutex
	set bool
	ch  chan struct{} // closed while the signal is set
}

// NewStageSignal creates a StageSignal in the cleared state.
func NewStageSignal() *StageSignal {
	return &StageSignal{
		ch: make(chan struct{}),
	}
}

// Set releases all current and future waiters until Clear is called.
func (s *StageSignal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set {
		return
	}
	s.set = true
	close(s.ch)
}

// Clear re-arms the signal so subsequent Wait calls block.
func (s *StageSignal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set {
		return
	}
	s.set = false
	s.ch = make(chan struct{})
}

// IsSet reports whether the signal is currently set.
func (s *StageSignal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Wait blocks until the signal is set. Returns immediately if it already is.
func (s *StageSignal) Wait() {
	<-s.waitChan()
}

// WaitContext blocks until the signal is set or ctx is done, returning
// ctx.Err() in the latter case.
func (s *StageSignal) WaitContext(ctx context.Context) error {
	select {
	case <-s.waitChan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitChan snapshots the channel for the current armed generation. Waiters
// hold no lock while blocked, so a concurrent Clear/Set cycle cannot strand
// them: they observe the close of the generation they started waiting on.
func (s *StageSignal) waitChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}
