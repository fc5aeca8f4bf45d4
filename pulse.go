package rig

import (
	"fmt"
	"math"
)

// PulseSegment is a single level-hold step of a compiled pulse train.
type PulseSegment struct {
	// Level is the digital output level, 0 or 1.
	Level int

	// DurationMs is how long the level is held, in milliseconds.
	DurationMs float64
}

// PulseScript is an ordered sequence of on/off segments describing a square
// pulse train: alternating on/off segments for every full cycle that fits in
// the requested duration, plus a trailing partial segment that preserves the
// total duration exactly.
//
// Invariants (see [CompilePulse]):
//   - segment durations sum to the requested duration
//   - no segment has a negative or zero duration
//   - the train never ends with an off segment of negative length
type PulseScript struct {
	Segments []PulseSegment
}

// Values returns the output levels of all segments, in order.
// The returned slice is suitable for [DigitalOut.StoreSeries].
func (s PulseScript) Values() []int {
	values := make([]int, len(s.Segments))
	for i, seg := range s.Segments {
		values[i] = seg.Level
	}
	return values
}

// Durations returns the hold durations (ms) of all segments, in order.
// The returned slice is suitable for [DigitalOut.StoreSeries].
func (s PulseScript) Durations() []float64 {
	durations := make([]float64, len(s.Segments))
	for i, seg := range s.Segments {
		durations[i] = seg.DurationMs
	}
	return durations
}

// TotalDurationMs returns the sum of all segment durations.
func (s PulseScript) TotalDurationMs() float64 {
	var total float64
	for _, seg := range s.Segments {
		total += seg.DurationMs
	}
	return total
}

// CompilePulse compiles a square pulse train from three human-specified
// parameters: total duration (ms), pulse frequency (Hz) and duty cycle.
//
// One cycle lasts 1000/freqHz milliseconds; the output is high for
// dutyCycle of each cycle and low for the rest. Full cycles are emitted as
// (1, on), (0, off) pairs. The remainder after the last full cycle is
// emitted so that the total duration is exact: if the remainder is shorter
// than the on phase, the train is truncated mid-on-phase with a single
// (1, remainder) segment; otherwise a complete on phase is followed by a
// shortened off tail. A zero remainder emits no trailing segment, and
// zero-length off segments (dutyCycle == 1) are suppressed rather than
// emitted.
//
// Returns an error when durationMs <= 0, freqHz <= 0, or dutyCycle is
// outside (0, 1]. These are configuration errors; compilation itself cannot
// fail once the preconditions hold.
func CompilePulse(durationMs, freqHz, dutyCycle float64) (PulseScript, error) {
	if durationMs <= 0 {
		return PulseScript{}, fmt.Errorf("rig: pulse duration must be > 0 ms, got %v", durationMs)
	}
	if freqHz <= 0 {
		return PulseScript{}, fmt.Errorf("rig: pulse frequency must be > 0 Hz, got %v", freqHz)
	}
	if dutyCycle <= 0 || dutyCycle > 1 {
		return PulseScript{}, fmt.Errorf("rig: duty cycle must be in (0, 1], got %v", dutyCycle)
	}

	cycleMs := 1000 / freqHz
	onMs := dutyCycle * cycleMs
	offMs := cycleMs - onMs

	fullCycles := int(math.Floor(durationMs / cycleMs))

	segments := make([]PulseSegment, 0, 2*fullCycles+2)
	for i := 0; i < fullCycles; i++ {
		segments = append(segments, PulseSegment{Level: 1, DurationMs: onMs})
		if offMs > 0 {
			segments = append(segments, PulseSegment{Level: 0, DurationMs: offMs})
		}
	}

	remainderMs := durationMs - float64(fullCycles)*cycleMs
	switch {
	case remainderMs <= 0:
		// Duration is an exact multiple of the cycle; nothing to pad.
	case remainderMs < onMs:
		// Truncated mid-on-phase.
		segments = append(segments, PulseSegment{Level: 1, DurationMs: remainderMs})
	default:
		// Complete on phase plus a shortened off tail.
		segments = append(segments, PulseSegment{Level: 1, DurationMs: onMs})
		if tail := remainderMs - onMs; tail > 0 {
			segments = append(segments, PulseSegment{Level: 0, DurationMs: tail})
		}
	}

	return PulseScript{Segments: segments}, nil
}
