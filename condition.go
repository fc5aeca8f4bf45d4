package rig

import (
	"fmt"
	"strconv"
)

// PulseCondition identifies one compiled pulse train. It is immutable:
// created once per distinct parameter combination at task construction and
// never modified afterwards. The compiled script body lives on the hardware
// driver; the condition retains only the identifying metadata.
type PulseCondition struct {
	// DurationMs is the total train duration in milliseconds.
	DurationMs float64

	// FreqHz is the pulse frequency in Hz.
	FreqHz float64

	// DutyCycle is the fraction of each cycle the output is high, in (0, 1].
	DutyCycle float64

	// ScriptId is the deterministic identifier the script was installed
	// under. It doubles as a human-diagnosable label.
	ScriptId string
}

// ConditionScriptId returns the deterministic, collision-free identifier for
// a (duration, frequency, duty cycle) combination. Distinct triples always
// map to distinct ids because each component is formatted minimally and the
// separator cannot appear inside a formatted float.
func ConditionScriptId(durationMs, freqHz, dutyCycle float64) string {
	return formatParam(durationMs) + "_" + formatParam(freqHz) + "_" + formatParam(dutyCycle)
}

func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// BuildConditions enumerates the Cartesian product of the three parameter
// lists (duration outer, frequency middle, duty cycle inner), compiles each
// combination with [CompilePulse], installs the script on out under its
// [ConditionScriptId], and returns the resulting conditions in enumeration
// order.
//
// The enumeration order only matters for reproducibility of diagnostics;
// selection over the returned set is uniform-random (see [LaserSelector]).
//
// If any input list is empty the returned set is empty and the error is nil:
// a task configured this way can never trigger an intervention, which is a
// valid, if degenerate, configuration.
func BuildConditions(durationsMs, freqsHz, dutyCycles []float64, out DigitalOut) ([]PulseCondition, error) {
	conditions := make([]PulseCondition, 0, len(durationsMs)*len(freqsHz)*len(dutyCycles))

	for _, durationMs := range durationsMs {
		for _, freqHz := range freqsHz {
			for _, dutyCycle := range dutyCycles {
				script, err := CompilePulse(durationMs, freqHz, dutyCycle)
				if err != nil {
					return nil, fmt.Errorf("rig: compile condition (duration=%v freq=%v duty=%v): %w",
						durationMs, freqHz, dutyCycle, err)
				}

				scriptId := ConditionScriptId(durationMs, freqHz, dutyCycle)
				if err := out.StoreSeries(scriptId, script.Values(), script.Durations()); err != nil {
					return nil, fmt.Errorf("rig: store series %q: %w", scriptId, err)
				}

				conditions = append(conditions, PulseCondition{
					DurationMs: durationMs,
					FreqHz:     freqHz,
					DutyCycle:  dutyCycle,
					ScriptId:   scriptId,
				})
			}
		}
	}

	return conditions, nil
}

// MaxConditionDurationMs returns the longest duration among the given
// conditions, or 0 for an empty set.
func MaxConditionDurationMs(conditions []PulseCondition) float64 {
	var max float64
	for _, c := range conditions {
		if c.DurationMs > max {
			max = c.DurationMs
		}
	}
	return max
}
