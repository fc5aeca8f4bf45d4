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
	// SeriesLEDPulse is the series id of the 1 ms LED blink installed by
	// the tuning-curve task.
	SeriesLEDPulse = "pulse"

	// StagePlaytone is the name of the tuning-curve task's single stage.
	StagePlaytone = "playtone"
)

// Keys under which tone fields are merged into a tuning-curve trial
// record's extension map.
const (
	FieldFrequency = "frequency"
	FieldAmplitude = "amplitude"
)

// TuningCurveDeps are the external collaborators of a [TuningCurveTask].
// LED and NewTone are required; the rest default like [GapLaserDeps].
type TuningCurveDeps struct {
	LED     DigitalOut
	NewTone ToneFactory
	Clock   Clock
	Rand    *rand.Rand
	Signal  *StageSignal
	Events  *EventHub
	Stats   *SessionStats
}

// TuningCurveTask plays an array of tones: each trial one tone drawn
// uniformly at random from the frequency x amplitude product is presented
// together with a 1 ms LED blink, and the stage-advance signal is released
// after the inter-stimulus interval. It is the simplest exercise of the
// stage machine: a single repeating stage and no trigger schedule.
type TuningCurveTask struct {
	cfg       *TuningCurveConfig
	led       DigitalOut
	tones     []Tone
	clock     Clock
	events    *EventHub
	stats     *SessionStats
	sessionId uuid.UUID
	machine   *StageMachine

	mu       sync.Mutex
	rng      *rand.Rand
	trialNum int
	closed   bool
}

// NewTuningCurveTask validates the config, synthesizes every
// frequency/amplitude combination through the tone factory, installs the
// LED blink series, and returns a task ready to be stepped.
func NewTuningCurveTask(cfg *TuningCurveConfig, deps TuningCurveDeps) (*TuningCurveTask, error) {
	if cfg == nil {
		return nil, errors.New("rig: tuning-curve config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.LED == nil {
		return nil, errors.New("rig: tuning-curve task needs an LED output")
	}
	if deps.NewTone == nil {
		return nil, errors.New("rig: tuning-curve task needs a tone factory")
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

	// Frequency outer, amplitude inner, matching the condition registry's
	// enumeration convention.
	tones := make([]Tone, 0, len(cfg.FrequenciesHz)*len(cfg.Amplitudes))
	for _, freq := range cfg.FrequenciesHz {
		for _, amp := range cfg.Amplitudes {
			tone, err := deps.NewTone(freq, amp, cfg.ToneDurationMs)
			if err != nil {
				return nil, fmt.Errorf("rig: synthesize tone (freq=%v amp=%v): %w", freq, amp, err)
			}
			tones = append(tones, tone)
		}
	}

	if err := deps.LED.StoreSeries(SeriesLEDPulse, []int{1}, []float64{1}); err != nil {
		return nil, fmt.Errorf("rig: store LED pulse series: %w", err)
	}

	t := &TuningCurveTask{
		cfg:       cfg,
		led:       deps.LED,
		tones:     tones,
		clock:     clock,
		events:    deps.Events,
		stats:     deps.Stats,
		sessionId: uuid.New(),
		rng:       rng,
	}

	isi := time.Duration(cfg.InterStimulusIntervalMs * float64(time.Millisecond))
	machine, err := NewStageMachine(
		[]Stage{{Name: StagePlaytone, Run: t.playtone}},
		deps.Signal, clock, isi,
	)
	if err != nil {
		return nil, err
	}
	t.machine = machine

	return t, nil
}

// playtone is the task's single stage: one tone, one LED blink, one record.
func (t *TuningCurveTask) playtone(ctx context.Context) (*TrialResult, error) {
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
	tone := t.tones[t.rng.Intn(len(t.tones))]
	t.mu.Unlock()

	if err := tone.Buffer(); err != nil {
		return nil, fmt.Errorf("buffer tone: %w", err)
	}

	timestamp := t.clock.Now()
	tone.Play()

	if err := t.led.Series(SeriesLEDPulse); err != nil {
		return nil, fmt.Errorf("fire LED pulse: %w", err)
	}

	t.stats.Incr(StatTrials)
	t.stats.Incr(StatStimuliPlayed)
	t.events.Emit(TrialEvent{Kind: EventTrialStarted, TrialNum: trialNum, Time: timestamp})

	record := &TrialResult{
		TrialNum:  trialNum,
		SessionId: t.sessionId,
		Timestamp: timestamp,
		Stage:     StagePlaytone,
	}
	record.MergeExtra(map[string]any{
		FieldFrequency: tone.FrequencyHz(),
		FieldAmplitude: tone.Amplitude(),
	})
	return record, nil
}

// Step runs the next stage of the trial cycle.
func (t *TuningCurveTask) Step(ctx context.Context) (*TrialResult, error) {
	return t.machine.Step(ctx)
}

// AwaitAdvance blocks until the stage-advance signal releases or ctx is
// done.
func (t *TuningCurveTask) AwaitAdvance(ctx context.Context) error {
	return t.machine.AwaitAdvance(ctx)
}

// Signal returns the stage-advance signal gating the trial cycle.
func (t *TuningCurveTask) Signal() *StageSignal {
	return t.machine.Signal()
}

// Tones returns the synthesized tone set in enumeration order.
func (t *TuningCurveTask) Tones() []Tone {
	return t.tones
}

// SessionId returns the identifier stamped on this session's trial records.
func (t *TuningCurveTask) SessionId() uuid.UUID {
	return t.sessionId
}

// End tears the task down: the pending inter-stimulus timer is cancelled
// first, then the LED is turned off. Safe to call multiple times.
func (t *TuningCurveTask) End() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	trialNum := t.trialNum - 1
	t.mu.Unlock()

	t.machine.Close()

	var firstErr error
	if err := t.led.Turn(false); err != nil {
		firstErr = fmt.Errorf("rig: turn off LED: %w", err)
	}

	t.events.Emit(TrialEvent{Kind: EventSessionEnded, TrialNum: trialNum, Time: t.clock.Now()})
	t.events.Close()
	return firstErr
}

// Compile-time check that TuningCurveTask implements Task.
var _ Task = (*TuningCurveTask)(nil)
