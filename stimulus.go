package rig

import (
	"fmt"
	"sync"
)

// Stimulus is the boundary to one playable stimulus owned by the external
// sound subsystem. Tasks only buffer, play, and observe completion; they
// never synthesize audio.
type Stimulus interface {
	// Buffer prepares the stimulus for immediate playback.
	Buffer() error

	// Play starts playback. It must not block for the stimulus duration.
	Play()

	// DurationMs is the stimulus duration in milliseconds.
	DurationMs() float64

	// SetFinished registers the completion handler invoked, on the sound
	// subsystem's thread, when playback ends. Tasks register exactly one
	// handler; a later call replaces the previous handler.
	SetFinished(fn func())
}

// Tone is a Stimulus with a defined frequency and amplitude, used by
// [TuningCurveTask] records.
type Tone interface {
	Stimulus
	FrequencyHz() float64
	Amplitude() float64
}

// ToneFactory creates a tone stimulus from synthesis parameters. Provided
// by the sound subsystem.
type ToneFactory func(freqHz, amplitude, durationMs float64) (Tone, error)

// ContinuousStimulus is a stimulus that loops until stopped, such as the
// background white noise a gap-detection task keeps running for the whole
// session.
type ContinuousStimulus interface {
	PlayContinuous() error
	StopContinuous() error
}

// StimulusSource supplies the per-trial stimulus and its correct response
// side. Owned by the surrounding trial framework's stimulus manager.
type StimulusSource interface {
	// Next returns the stimulus to present this trial and the target side.
	Next() (Stimulus, Target, error)

	// MaxDurationMs returns the longest stimulus duration the source can
	// produce, used to size the arena LED series in DURING_STIMULUS mode.
	MaxDurationMs() float64
}

// MockStimulus is an in-memory [Stimulus] (and [Tone]) for tests and dry
// runs. Completion is driven either manually via Finish or synchronously on
// Play when AutoFinish is set.
type MockStimulus struct {
	Freq  float64
	Amp   float64
	DurMs float64

	// AutoFinish invokes the finished handler synchronously inside Play.
	AutoFinish bool

	mu       sync.Mutex
	finished func()
	buffered int
	played   int
}

// Buffer records the call.
func (s *MockStimulus) Buffer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffered++
	return nil
}

// Play records the call and, when AutoFinish is set, invokes the finished
// handler before returning.
func (s *MockStimulus) Play() {
	s.mu.Lock()
	s.played++
	fn := s.finished
	auto := s.AutoFinish
	s.mu.Unlock()

	if auto && fn != nil {
		fn()
	}
}

// DurationMs returns the configured duration.
func (s *MockStimulus) DurationMs() float64 { return s.DurMs }

// FrequencyHz returns the configured frequency.
func (s *MockStimulus) FrequencyHz() float64 { return s.Freq }

// Amplitude returns the configured amplitude.
func (s *MockStimulus) Amplitude() float64 { return s.Amp }

// SetFinished registers the completion handler.
func (s *MockStimulus) SetFinished(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = fn
}

// Finish simulates the sound subsystem's completion callback.
func (s *MockStimulus) Finish() {
	s.mu.Lock()
	fn := s.finished
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// PlayCount returns how many times Play was called.
func (s *MockStimulus) PlayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.played
}

// BufferCount returns how many times Buffer was called.
func (s *MockStimulus) BufferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffered
}

// MockStimulusSource is an in-memory [StimulusSource] that cycles through a
// fixed list of stimulus/target pairs.
type MockStimulusSource struct {
	mu      sync.Mutex
	entries []mockSourceEntry
	next    int
}

type mockSourceEntry struct {
	stim   Stimulus
	target Target
}

// NewMockStimulusSource creates an empty source; populate it with Add.
func NewMockStimulusSource() *MockStimulusSource {
	return &MockStimulusSource{}
}

// Add appends a stimulus/target pair to the cycle and returns the source
// for chaining.
func (m *MockStimulusSource) Add(stim Stimulus, target Target) *MockStimulusSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, mockSourceEntry{stim: stim, target: target})
	return m
}

// Next returns the next pair in the cycle.
func (m *MockStimulusSource) Next() (Stimulus, Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == 0 {
		return nil, 0, fmt.Errorf("rig: stimulus source is empty")
	}
	e := m.entries[m.next%len(m.entries)]
	m.next++
	return e.stim, e.target, nil
}

// MaxDurationMs returns the longest duration among the added stimuli.
func (m *MockStimulusSource) MaxDurationMs() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var max float64
	for _, e := range m.entries {
		if d := e.stim.DurationMs(); d > max {
			max = d
		}
	}
	return max
}

// MockContinuousStimulus is an in-memory [ContinuousStimulus] recording
// start/stop calls.
type MockContinuousStimulus struct {
	mu      sync.Mutex
	playing bool
	starts  int
	stops   int
}

// PlayContinuous records the call and marks the stimulus playing.
func (m *MockContinuousStimulus) PlayContinuous() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
	m.starts++
	return nil
}

// StopContinuous records the call and marks the stimulus stopped.
func (m *MockContinuousStimulus) StopContinuous() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.stops++
	return nil
}

// Playing reports whether the stimulus is currently marked playing.
func (m *MockContinuousStimulus) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Compile-time checks for the in-memory stimulus fakes.
var (
	_ Tone               = (*MockStimulus)(nil)
	_ StimulusSource     = (*MockStimulusSource)(nil)
	_ ContinuousStimulus = (*MockContinuousStimulus)(nil)
)
