package rig

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrMachineClosed is returned when a stage machine is stepped after Close.
var ErrMachineClosed = errors.New("rig: stage machine closed")

// Stage is one named step in the repeating trial cycle. Run performs the
// stage's work (selecting and playing a stimulus, deciding an intervention,
// mutating the trigger schedule under its lock) and returns the trial
// record for the step.
type Stage struct {
	Name string
	Run  func(ctx context.Context) (*TrialResult, error)
}

// StageMachine cycles through a fixed sequence of named stages, unbounded:
// there is no terminal stage, the cycle ends only when the surrounding task
// calls Close.
//
// Step clears the stage-advance signal, runs the current stage, then arms a
// single-shot timer that re-sets the signal once the inter-stimulus interval
// elapses. The surrounding loop blocks on AwaitAdvance between steps; the
// signal is the sole synchronization point between trial cadence and the
// asynchronous timer.
//
// Close cancels any pending timer so no stray callback fires after task
// teardown, and sets the signal so a loop blocked in AwaitAdvance is
// released.
type StageMachine struct {
	clock  Clock
	isi    time.Duration
	signal *StageSignal

	mu      sync.Mutex
	stages  []Stage
	idx     int
	pending Timer
	closed  bool
}

// NewStageMachine creates a machine cycling over stages. signal may be nil,
// in which case the machine owns a fresh one; pass an external signal when
// the surrounding task framework owns stage gating. clock may be nil for
// the system clock. isi must be positive.
func NewStageMachine(stages []Stage, signal *StageSignal, clock Clock, isi time.Duration) (*StageMachine, error) {
	if len(stages) == 0 {
		return nil, errors.New("rig: stage machine needs at least one stage")
	}
	for i, st := range stages {
		if st.Run == nil {
			return nil, fmt.Errorf("rig: stage %d (%q) has no Run function", i, st.Name)
		}
	}
	if isi <= 0 {
		return nil, fmt.Errorf("rig: inter-stimulus interval must be positive, got %v", isi)
	}
	if signal == nil {
		signal = NewStageSignal()
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &StageMachine{
		clock:  clock,
		isi:    isi,
		signal: signal,
		stages: stages,
	}, nil
}

// Step runs the next stage in the cycle and arms the stage-advance timer.
// The stage function runs on the caller's goroutine without any machine
// lock held.
func (m *StageMachine) Step(ctx context.Context) (*TrialResult, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrMachineClosed
	}
	stage := m.stages[m.idx]
	m.idx = (m.idx + 1) % len(m.stages)
	m.mu.Unlock()

	m.signal.Clear()

	result, err := stage.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("rig: stage %q: %w", stage.Name, err)
	}

	m.arm()
	return result, nil
}

// arm schedules the stage-advance signal, replacing any pending timer.
func (m *StageMachine) arm() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if m.pending != nil {
		m.pending.Stop()
	}
	m.pending = m.clock.AfterFunc(m.isi, m.signal.Set)
}

// AwaitAdvance blocks until the stage-advance signal is set or ctx is done.
func (m *StageMachine) AwaitAdvance(ctx context.Context) error {
	return m.signal.WaitContext(ctx)
}

// Signal returns the machine's stage-advance signal.
func (m *StageMachine) Signal() *StageSignal {
	return m.signal
}

// Close stops the machine: the pending timer (if any) is cancelled, further
// Step calls return [ErrMachineClosed], and the signal is set to release
// any waiter. Safe to call multiple times.
func (m *StageMachine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	if pending != nil {
		pending.Stop()
	}
	m.signal.Set()
}
