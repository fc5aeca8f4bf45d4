package rig

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// GateStimulusEnd is the gate whose triggers run when the stimulus-end
	// callback fires.
	GateStimulusEnd = "stim_end"

	// SeriesLEDOn is the series id of the arena LED script installed for
	// the stim/laser LED modes.
	SeriesLEDOn = "on"

	// StageRequest is the name of the gap-laser task's single stage.
	StageRequest = "request"
)

// GapLaserHardware names the digital outputs a [GapLaserTask] drives. The
// laser output carries every compiled pulse condition; the top LED carries
// the arena illumination script.
type GapLaserHardware struct {
	Laser  DigitalOut
	TopLED DigitalOut
}

// GapLaserDeps are the external collaborators of a [GapLaserTask].
// Hardware and Stimuli are required; everything else has a working default
// (system clock, time-seeded random source, fresh stage signal) or is
// optional (noise, events, stats).
type GapLaserDeps struct {
	Hardware GapLaserHardware
	Stimuli  StimulusSource

	// Noise is the continuous background noise started at construction and
	// stopped at End. Ignored when nil or when the configured
	// noise_amplitude is 0.
	Noise ContinuousStimulus

	// Clock drives timestamps and the inter-stimulus-interval timer.
	Clock Clock

	// Rand is the task's random source; inject a seeded one for
	// deterministic tests.
	Rand *rand.Rand

	// Signal is the stage-advance signal; pass the framework's signal or
	// leave nil to let the task own one.
	Signal *StageSignal

	// Events receives trial lifecycle events; nil disables publication.
	Events *EventHub

	// Stats receives session counters; nil disables collection.
	Stats *SessionStats
}

// GapLaserTask is a gap-detection task with optogenetic laser control.
//
// At construction it compiles every (duration, frequency, duty cycle)
// combination into a pulse script on the laser output, applies the arena
// LED mode, and starts the continuous background noise. Each trial the
// request stage clears the stage-advance signal, draws the next stimulus,
// decides under the trigger-schedule lock whether this trial fires the
// laser, plays the stimulus, and arms the inter-stimulus-interval timer.
// When the sound subsystem reports stimulus completion, the bound triggers
// fire in FIFO order under the same lock.
//
// End cancels the pending timer before releasing any hardware, so no stray
// callback fires into a torn-down context.
type GapLaserTask struct {
	cfg       *GapLaserConfig
	ledMode   LEDMode
	hw        GapLaserHardware
	stimuli   StimulusSource
	noise     ContinuousStimulus
	clock     Clock
	events    *EventHub
	stats     *SessionStats
	sessionId uuid.UUID

	conditions []PulseCondition
	selector   *LaserSelector
	triggers   *TriggerSchedule
	machine    *StageMachine

	mu       sync.Mutex
	trialNum int
	current  *TrialContext
	closed   bool
}

// NewGapLaserTask validates the config, installs all pulse scripts and the
// arena LED script, starts the background noise, and returns a task ready
// to be stepped. Configuration errors are fatal: the task is not
// constructed and no hardware is touched beyond what was already installed.
func NewGapLaserTask(cfg *GapLaserConfig, deps GapLaserDeps) (*GapLaserTask, error) {
	if cfg == nil {
		return nil, errors.New("rig: gap-laser config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Hardware.Laser == nil {
		return nil, errors.New("rig: gap-laser task needs a laser output")
	}
	if deps.Hardware.TopLED == nil {
		return nil, errors.New("rig: gap-laser task needs a top LED output")
	}
	if deps.Stimuli == nil {
		return nil, errors.New("rig: gap-laser task needs a stimulus source")
	}

	laserMode, err := ParseLaserMode(cfg.LaserMode)
	if err != nil {
		return nil, err
	}
	ledMode, err := ParseLEDMode(cfg.ArenaLEDMode)
	if err != nil {
		return nil, err
	}

	clock := deps.Clock
	if clock == nil {
		clock = NewSystemClock()
	}
	rng := deps.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	conditions, err := BuildConditions(cfg.LaserDurationsMs, cfg.LaserFreqsHz, cfg.LaserDutyCycles, deps.Hardware.Laser)
	if err != nil {
		return nil, err
	}

	selector, err := NewLaserSelector(laserMode, cfg.LaserProbability, conditions, rng)
	if err != nil {
		return nil, err
	}

	t := &GapLaserTask{
		cfg:        cfg,
		ledMode:    ledMode,
		hw:         deps.Hardware,
		stimuli:    deps.Stimuli,
		noise:      deps.Noise,
		clock:      clock,
		events:     deps.Events,
		stats:      deps.Stats,
		sessionId:  uuid.New(),
		conditions: conditions,
		selector:   selector,
		triggers:   NewTriggerSchedule(),
	}

	switch ledMode {
	case LEDAlwaysOn:
		if err := t.hw.TopLED.Turn(true); err != nil {
			return nil, fmt.Errorf("rig: turn on arena LED: %w", err)
		}
	case LEDDuringStimulus:
		maxMs := deps.Stimuli.MaxDurationMs()
		if maxMs <= 0 {
			return nil, fmt.Errorf("rig: arena LED mode %q needs a stimulus source with a positive max duration", cfg.ArenaLEDMode)
		}
		if err := t.hw.TopLED.StoreSeries(SeriesLEDOn, []int{1}, []float64{maxMs}); err != nil {
			return nil, fmt.Errorf("rig: store arena LED series: %w", err)
		}
	case LEDAtIntervention:
		if maxMs := MaxConditionDurationMs(conditions); maxMs > 0 {
			if err := t.hw.TopLED.StoreSeries(SeriesLEDOn, []int{1}, []float64{maxMs}); err != nil {
				return nil, fmt.Errorf("rig: store arena LED series: %w", err)
			}
		}
	}

	if t.noise != nil && cfg.NoiseAmplitude > 0 {
		if err := t.noise.PlayContinuous(); err != nil {
			return nil, fmt.Errorf("rig: start background noise: %w", err)
		}
	}

	isi := time.Duration(cfg.InterStimulusIntervalMs * float64(time.Millisecond))
	machine, err := NewStageMachine(
		[]Stage{{Name: StageRequest, Run: t.request}},
		deps.Signal, clock, isi,
	)
	if err != nil {
		return nil, err
	}
	t.machine = machine

	return t, nil
}

// request is the task's single stage: present a stimulus, bind the laser
// and LED triggers for stimulus end, and return the trial record.
func (t *GapLaserTask) request(ctx context.Context) (*TrialResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrMachineClosed
	}
	trialNum := t.trialNum
	t.trialNum++
	t.mu.Unlock()

	stim, target, err := t.stimuli.Next()
	if err != nil {
		return nil, fmt.Errorf("next stimulus: %w", err)
	}
	if err := stim.Buffer(); err != nil {
		return nil, fmt.Errorf("buffer stimulus: %w", err)
	}

	trial := &TrialContext{Index: trialNum, Target: target}

	// The laser decision and every trigger insertion it implies happen
	// inside one lock acquisition, so the stimulus-end consumer can never
	// observe the schedule between the decision and the insert.
	t.triggers.Update(func(tx *TriggerTx) {
		if cond, ok := t.selector.Decide(target); ok {
			c := cond
			trial.Selected = &c
			tx.PushFront(GateStimulusEnd, func() { t.fireLaser(c, trialNum) })
			if t.ledMode == LEDAtIntervention {
				tx.PushFront(GateStimulusEnd, func() { t.fireArenaLED() })
			}
		}
		if t.ledMode == LEDDuringStimulus {
			tx.PushFront(GateStimulusEnd, func() { t.fireArenaLED() })
		}
	})

	// Snapshot the binding now: the completion callback clears
	// trial.Selected, and a short stimulus can finish before the record
	// below is built.
	var selected *PulseCondition
	if trial.Selected != nil {
		c := *trial.Selected
		selected = &c
	}

	t.mu.Lock()
	t.current = trial
	t.mu.Unlock()

	stim.SetFinished(t.onStimulusEnd)

	timestamp := t.clock.Now()
	stim.Play()

	t.stats.Incr(StatTrials)
	t.stats.Incr(StatStimuliPlayed)
	if selected != nil {
		t.stats.Incr(StatLaserTrials)
	}
	t.events.Emit(TrialEvent{Kind: EventTrialStarted, TrialNum: trialNum, Time: timestamp})

	record := &TrialResult{
		TrialNum:  trialNum,
		SessionId: t.sessionId,
		Timestamp: timestamp,
		Stage:     StageRequest,
	}
	record.MergeExtra(map[string]any{"target": target.String()})
	record.MergeExtra(laserFields(selected))
	return record, nil
}

// fireLaser triggers the bound pulse script. The script was installed at
// construction, so an unknown id here is an unrecoverable logic error and
// panics rather than being clamped or swallowed.
func (t *GapLaserTask) fireLaser(c PulseCondition, trialNum int) {
	if err := t.hw.Laser.Series(c.ScriptId); err != nil {
		panic(fmt.Errorf("rig: fire laser script %q: %w", c.ScriptId, err))
	}
	t.stats.Incr(StatLaserFiredFor + c.ScriptId)
	t.events.Emit(TrialEvent{
		Kind:     EventLaserFired,
		TrialNum: trialNum,
		Time:     t.clock.Now(),
		ScriptId: c.ScriptId,
	})
}

// fireArenaLED triggers the arena LED script.
func (t *GapLaserTask) fireArenaLED() {
	if err := t.hw.TopLED.Series(SeriesLEDOn); err != nil {
		panic(fmt.Errorf("rig: fire arena LED series: %w", err))
	}
}

// onStimulusEnd is the completion handler registered with each stimulus.
// It runs on the sound subsystem's thread: it drains and invokes the
// stimulus-end gate under the schedule lock, then clears the trial's bound
// condition.
func (t *GapLaserTask) onStimulusEnd() {
	t.triggers.Fire(GateStimulusEnd)

	t.mu.Lock()
	trialNum := -1
	if t.current != nil {
		trialNum = t.current.Index
		t.current.Selected = nil
	}
	t.mu.Unlock()

	t.events.Emit(TrialEvent{Kind: EventStimulusEnded, TrialNum: trialNum, Time: t.clock.Now()})
}

// Step runs the next stage of the trial cycle.
func (t *GapLaserTask) Step(ctx context.Context) (*TrialResult, error) {
	return t.machine.Step(ctx)
}

// AwaitAdvance blocks until the stage-advance signal releases or ctx is
// done.
func (t *GapLaserTask) AwaitAdvance(ctx context.Context) error {
	return t.machine.AwaitAdvance(ctx)
}

// Signal returns the stage-advance signal gating the trial cycle.
func (t *GapLaserTask) Signal() *StageSignal {
	return t.machine.Signal()
}

// Conditions returns the compiled condition set in registry order.
func (t *GapLaserTask) Conditions() []PulseCondition {
	return t.conditions
}

// SessionId returns the identifier stamped on this session's trial records.
func (t *GapLaserTask) SessionId() uuid.UUID {
	return t.sessionId
}

// End tears the task down: the pending inter-stimulus timer is cancelled
// first, then the background noise stops, the arena LED turns off, and any
// unfired triggers are discarded without being invoked. Safe to call
// multiple times; later calls are no-ops.
func (t *GapLaserTask) End() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	// Timer first: nothing may fire after hardware is released.
	t.machine.Close()

	var firstErr error
	if t.noise != nil && t.cfg.NoiseAmplitude > 0 {
		if err := t.noise.StopContinuous(); err != nil {
			firstErr = fmt.Errorf("rig: stop background noise: %w", err)
		}
	}
	if err := t.hw.TopLED.Turn(false); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("rig: turn off arena LED: %w", err)
	}

	t.triggers.Update(func(tx *TriggerTx) { tx.ClearAll() })

	t.events.Emit(TrialEvent{Kind: EventSessionEnded, TrialNum: t.trialNum - 1, Time: t.clock.Now()})
	t.events.Close()
	return firstErr
}

// Compile-time check that GapLaserTask implements Task.
var _ Task = (*GapLaserTask)(nil)
