package rig

import (
	"time"

	"github.com/google/uuid"
)

// Keys under which laser fields are merged into a trial record's extension
// map. The surrounding task framework merges these into its trial-result
// table.
const (
	FieldLaser          = "laser"
	FieldLaserDuration  = "laser_duration"
	FieldLaserDutyCycle = "laser_duty_cycle"
	FieldLaserFrequency = "laser_frequency"
)

// TrialContext is the ephemeral per-trial state threaded from
// trigger-decision time to deferred-firing time. It is created at the start
// of a trial's first stage and discarded once the stage-advance signal fires
// and the task loop moves on.
type TrialContext struct {
	// Index is the zero-based trial number.
	Index int

	// Target is the correct response side for this trial.
	Target Target

	// Selected is the condition bound for deferred firing at stimulus
	// termination, or nil when this trial has no intervention. It must
	// survive until the stimulus-end callback runs, then is cleared.
	Selected *PulseCondition
}

// TrialResult is the record a stage returns for one trial. Task-specific
// fields live in Extra, an explicit extension map merged at construction,
// rather than in per-task record subtypes.
type TrialResult struct {
	// TrialNum is the zero-based trial number, incrementing by exactly one
	// per stage cycle.
	TrialNum int

	// SessionId identifies the task session the trial belongs to.
	SessionId uuid.UUID

	// Timestamp is when the stimulus presentation started.
	Timestamp time.Time

	// Stage is the name of the stage that produced the record.
	Stage string

	// Extra holds task-specific fields (laser parameters, tone parameters).
	Extra map[string]any
}

// MergeExtra copies fields into the record's extension map, creating it if
// needed. Later merges overwrite earlier ones key by key.
func (r *TrialResult) MergeExtra(fields map[string]any) {
	if r.Extra == nil {
		r.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		r.Extra[k] = v
	}
}

// laserFields builds the laser portion of a trial record. A nil condition
// records a non-lasered trial with zeroed parameters.
func laserFields(c *PulseCondition) map[string]any {
	if c == nil {
		return map[string]any{
			FieldLaser:          false,
			FieldLaserDuration:  0.0,
			FieldLaserDutyCycle: 0.0,
			FieldLaserFrequency: 0.0,
		}
	}
	return map[string]any{
		FieldLaser:          true,
		FieldLaserDuration:  c.DurationMs,
		FieldLaserDutyCycle: c.DutyCycle,
		FieldLaserFrequency: c.FreqHz,
	}
}
