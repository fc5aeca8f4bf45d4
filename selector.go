package rig

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Target is the correct response side for the current trial, supplied by
// the surrounding task framework before the decision stage runs.
type Target int

const (
	TargetLeft Target = iota
	TargetRight
)

// String returns "L" or "R", matching the labels used in trial records.
func (t Target) String() string {
	switch t {
	case TargetLeft:
		return "L"
	case TargetRight:
		return "R"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// LaserMode selects which trial targets qualify for an intervention pulse.
type LaserMode int

const (
	// LaserLeft qualifies trials whose target is the left side.
	LaserLeft LaserMode = iota

	// LaserRight qualifies trials whose target is the right side.
	LaserRight

	// LaserBoth qualifies every trial.
	LaserBoth
)

// String returns the canonical configuration label for the mode.
func (m LaserMode) String() string {
	switch m {
	case LaserLeft:
		return "L"
	case LaserRight:
		return "R"
	case LaserBoth:
		return "Both"
	default:
		return fmt.Sprintf("LaserMode(%d)", int(m))
	}
}

// ParseLaserMode parses a configuration value into a LaserMode. Accepted
// values (case-insensitive): "l", "left", "r", "right", "both". Invalid
// values fail fast with a descriptive error.
func ParseLaserMode(s string) (LaserMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "left":
		return LaserLeft, nil
	case "r", "right":
		return LaserRight, nil
	case "both":
		return LaserBoth, nil
	default:
		return 0, fmt.Errorf("rig: laser mode must be one of L, R, Both, got %q", s)
	}
}

// LaserSelector makes the per-trial intervention decision: does the trial
// qualify under the configured mode, does it pass the probability draw, and
// if so, which compiled condition fires. The selector is side-effect-free
// with respect to hardware; binding the returned condition to a
// deferred-fire slot is the caller's responsibility, which keeps the
// decision logic independently testable.
//
// The random source is injected so tests can seed it; pass nil to use a
// time-seeded source. Decide is safe for concurrent use.
type LaserSelector struct {
	mode        LaserMode
	probability float64
	conditions  []PulseCondition

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLaserSelector creates a selector over the given compiled conditions.
// probability must be in [0, 1]; an empty condition set is accepted (such a
// selector never selects).
func NewLaserSelector(mode LaserMode, probability float64, conditions []PulseCondition, rng *rand.Rand) (*LaserSelector, error) {
	if probability < 0 || probability > 1 {
		return nil, fmt.Errorf("rig: laser probability must be in [0, 1], got %v", probability)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &LaserSelector{
		mode:        mode,
		probability: probability,
		conditions:  conditions,
		rng:         rng,
	}, nil
}

// Decide returns the condition to fire this trial, if any.
//
// A trial qualifies when the mode is [LaserBoth], or when the mode names the
// same side as target. Qualifying trials draw r uniformly from [0, 1) and
// select when r <= probability (inclusive, so probability 1 always selects);
// the condition is then drawn uniformly at random from the set.
// Non-qualifying trials, failed draws, and an empty condition set all return
// ok == false.
func (s *LaserSelector) Decide(target Target) (PulseCondition, bool) {
	qualifies := s.mode == LaserBoth ||
		(s.mode == LaserLeft && target == TargetLeft) ||
		(s.mode == LaserRight && target == TargetRight)
	if !qualifies || len(s.conditions) == 0 {
		return PulseCondition{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() > s.probability {
		return PulseCondition{}, false
	}
	return s.conditions[s.rng.Intn(len(s.conditions))], true
}

// Conditions returns the selector's condition set in registry order.
func (s *LaserSelector) Conditions() []PulseCondition {
	return s.conditions
}
