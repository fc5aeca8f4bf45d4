package rig

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FloatList is a []float64 that additionally accepts a bare scalar in YAML.
// Protocol wizards frequently hand tasks a single value where a list is
// allowed, so `laser_freq: 20` and `laser_freq: [20, 30]` both decode.
type FloatList []float64

// UnmarshalYAML decodes either a scalar or a sequence of floats.
func (l *FloatList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := value.Decode(&v); err != nil {
			return fmt.Errorf("rig: expected a number or list of numbers: %w", err)
		}
		*l = FloatList{v}
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := value.Decode(&vs); err != nil {
			return fmt.Errorf("rig: expected a number or list of numbers: %w", err)
		}
		*l = FloatList(vs)
		return nil
	default:
		return fmt.Errorf("rig: expected a number or list of numbers, got YAML kind %d", value.Kind)
	}
}

// LEDMode selects when the arena (overhead) LED illuminates.
type LEDMode int

const (
	// LEDAlwaysOn turns the LED on at task construction and leaves it on.
	LEDAlwaysOn LEDMode = iota

	// LEDDuringStimulus fires an LED series sized to the longest stimulus
	// on every trial.
	LEDDuringStimulus

	// LEDAtIntervention fires the LED series only on trials where the
	// intervention pulse fires.
	LEDAtIntervention
)

// String returns the canonical configuration label for the mode.
func (m LEDMode) String() string {
	switch m {
	case LEDAlwaysOn:
		return "on"
	case LEDDuringStimulus:
		return "stim"
	case LEDAtIntervention:
		return "laser"
	default:
		return fmt.Sprintf("LEDMode(%d)", int(m))
	}
}

// ParseLEDMode parses a configuration value into an LEDMode. Accepted
// values (case-insensitive): "on"/"always_on", "stim"/"during_stimulus",
// "laser"/"at_intervention". Invalid values fail fast with a descriptive
// error; there is no silent default.
func ParseLEDMode(s string) (LEDMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "always_on":
		return LEDAlwaysOn, nil
	case "stim", "during_stimulus":
		return LEDDuringStimulus, nil
	case "laser", "at_intervention":
		return LEDAtIntervention, nil
	default:
		return 0, fmt.Errorf("rig: arena LED mode must be one of on, stim, laser, got %q", s)
	}
}

// GapLaserConfig holds the operator-specified parameters for a
// [GapLaserTask]. Load it from YAML with [ParseGapLaserConfig]; Validate is
// called during task construction and fails fast on the first invalid
// field.
type GapLaserConfig struct {
	// InterStimulusIntervalMs is the delay between a trial's stage work and
	// the release of the stage-advance signal, in milliseconds.
	InterStimulusIntervalMs float64 `yaml:"inter_stimulus_interval"`

	// LaserProbability is the chance, in [0, 1], that a qualifying trial
	// fires the laser.
	LaserProbability float64 `yaml:"laser_probability"`

	// LaserMode selects which targets qualify: "L", "R" or "Both".
	LaserMode string `yaml:"laser_mode"`

	// LaserFreqsHz, LaserDutyCycles and LaserDurationsMs span the condition
	// space; every combination of the three lists is compiled into a
	// hardware script. Any empty list yields an empty condition set, which
	// is valid but can never trigger an intervention.
	LaserFreqsHz     FloatList `yaml:"laser_freq"`
	LaserDutyCycles  FloatList `yaml:"laser_duty_cycle"`
	LaserDurationsMs FloatList `yaml:"laser_durations"`

	// ArenaLEDMode is "on", "stim" or "laser"; see [LEDMode].
	ArenaLEDMode string `yaml:"arena_led_mode"`

	// NoiseAmplitude scales the continuous background noise; 0 disables it.
	NoiseAmplitude float64 `yaml:"noise_amplitude"`

	// Seed seeds the task's random source. 0 means time-seeded.
	Seed int64 `yaml:"seed"`
}

// ParseGapLaserConfig decodes and validates a YAML GapLaserConfig.
func ParseGapLaserConfig(data []byte) (*GapLaserConfig, error) {
	var cfg GapLaserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("rig: parse gap-laser config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and returns a descriptive error for the first
// invalid one. Configuration errors are fatal: a task must not start with
// an invalid config.
func (c *GapLaserConfig) Validate() error {
	if c.InterStimulusIntervalMs <= 0 {
		return fmt.Errorf("rig: inter_stimulus_interval must be > 0 ms, got %v", c.InterStimulusIntervalMs)
	}
	if c.LaserProbability < 0 || c.LaserProbability > 1 {
		return fmt.Errorf("rig: laser_probability must be in [0, 1], got %v", c.LaserProbability)
	}
	if _, err := ParseLaserMode(c.LaserMode); err != nil {
		return err
	}
	if _, err := ParseLEDMode(c.ArenaLEDMode); err != nil {
		return err
	}
	for _, f := range c.LaserFreqsHz {
		if f <= 0 {
			return fmt.Errorf("rig: laser_freq values must be > 0 Hz, got %v", f)
		}
	}
	for _, d := range c.LaserDutyCycles {
		if d <= 0 || d > 1 {
			return fmt.Errorf("rig: laser_duty_cycle values must be in (0, 1], got %v", d)
		}
	}
	for _, d := range c.LaserDurationsMs {
		if d <= 0 {
			return fmt.Errorf("rig: laser_durations values must be > 0 ms, got %v", d)
		}
	}
	if c.NoiseAmplitude < 0 {
		return fmt.Errorf("rig: noise_amplitude must be >= 0, got %v", c.NoiseAmplitude)
	}
	return nil
}

// TuningCurveConfig holds the operator-specified parameters for a
// [TuningCurveTask].
type TuningCurveConfig struct {
	// InterStimulusIntervalMs is the delay between a trial's stage work and
	// the release of the stage-advance signal, in milliseconds.
	InterStimulusIntervalMs float64 `yaml:"inter_stimulus_interval"`

	// FrequenciesHz and Amplitudes span the tone space; every combination
	// is synthesized at construction.
	FrequenciesHz FloatList `yaml:"frequencies"`
	Amplitudes    FloatList `yaml:"amplitudes"`

	// ToneDurationMs is the duration of each tone.
	ToneDurationMs float64 `yaml:"duration"`

	// Seed seeds the task's random source. 0 means time-seeded.
	Seed int64 `yaml:"seed"`
}

// ParseTuningCurveConfig decodes and validates a YAML TuningCurveConfig.
func ParseTuningCurveConfig(data []byte) (*TuningCurveConfig, error) {
	var cfg TuningCurveConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("rig: parse tuning-curve config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and returns a descriptive error for the first
// invalid one.
func (c *TuningCurveConfig) Validate() error {
	if c.InterStimulusIntervalMs <= 0 {
		return fmt.Errorf("rig: inter_stimulus_interval must be > 0 ms, got %v", c.InterStimulusIntervalMs)
	}
	if len(c.FrequenciesHz) == 0 {
		return fmt.Errorf("rig: frequencies must not be empty")
	}
	if len(c.Amplitudes) == 0 {
		return fmt.Errorf("rig: amplitudes must not be empty")
	}
	for _, f := range c.FrequenciesHz {
		if f <= 0 {
			return fmt.Errorf("rig: frequencies values must be > 0 Hz, got %v", f)
		}
	}
	for _, a := range c.Amplitudes {
		if a <= 0 || a > 1 {
			return fmt.Errorf("rig: amplitudes values must be in (0, 1], got %v", a)
		}
	}
	if c.ToneDurationMs <= 0 {
		return fmt.Errorf("rig: duration must be > 0 ms, got %v", c.ToneDurationMs)
	}
	return nil
}
