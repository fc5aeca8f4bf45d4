package rig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFloatList_AcceptsScalarAndSequence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected FloatList
	}{
		{name: "bare scalar", input: "freq: 20", expected: FloatList{20}},
		{name: "scalar float", input: "freq: 0.5", expected: FloatList{0.5}},
		{name: "sequence", input: "freq: [20, 30.5, 40]", expected: FloatList{20, 30.5, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc struct {
				Freq FloatList `yaml:"freq"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(tt.input), &doc))
			assert.Equal(t, tt.expected, doc.Freq)
		})
	}

	t.Run("empty sequence", func(t *testing.T) {
		var doc struct {
			Freq FloatList `yaml:"freq"`
		}
		require.NoError(t, yaml.Unmarshal([]byte("freq: []"), &doc))
		assert.Empty(t, doc.Freq)
	})
}

func TestFloatList_RejectsNonNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "string scalar", input: "freq: abc"},
		{name: "mapping", input: "freq: {a: 1}"},
		{name: "string in sequence", input: "freq: [20, abc]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc struct {
				Freq FloatList `yaml:"freq"`
			}
			assert.Error(t, yaml.Unmarshal([]byte(tt.input), &doc))
		})
	}
}

const validGapLaserYAML = `
inter_stimulus_interval: 500
laser_probability: 0.5
laser_mode: Both
laser_freq: [20, 30]
laser_duty_cycle: 0.1
laser_durations: [10, 20]
arena_led_mode: stim
noise_amplitude: 0.01
seed: 42
`

func TestParseGapLaserConfig_Valid(t *testing.T) {
	cfg, err := ParseGapLaserConfig([]byte(validGapLaserYAML))
	require.NoError(t, err)

	assert.Equal(t, 500.0, cfg.InterStimulusIntervalMs)
	assert.Equal(t, 0.5, cfg.LaserProbability)
	assert.Equal(t, "Both", cfg.LaserMode)
	assert.Equal(t, FloatList{20, 30}, cfg.LaserFreqsHz)
	assert.Equal(t, FloatList{0.1}, cfg.LaserDutyCycles, "a bare scalar decodes as a one-element list")
	assert.Equal(t, FloatList{10, 20}, cfg.LaserDurationsMs)
	assert.Equal(t, "stim", cfg.ArenaLEDMode)
	assert.Equal(t, 0.01, cfg.NoiseAmplitude)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestGapLaserConfig_Validate(t *testing.T) {
	valid := func() GapLaserConfig {
		return GapLaserConfig{
			InterStimulusIntervalMs: 500,
			LaserProbability:        0.5,
			LaserMode:               "Both",
			LaserFreqsHz:            FloatList{20},
			LaserDutyCycles:         FloatList{0.1},
			LaserDurationsMs:        FloatList{10},
			ArenaLEDMode:            "on",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *GapLaserConfig)
	}{
		{name: "zero interval", mutate: func(c *GapLaserConfig) { c.InterStimulusIntervalMs = 0 }},
		{name: "negative probability", mutate: func(c *GapLaserConfig) { c.LaserProbability = -0.1 }},
		{name: "probability above one", mutate: func(c *GapLaserConfig) { c.LaserProbability = 1.5 }},
		{name: "unknown laser mode", mutate: func(c *GapLaserConfig) { c.LaserMode = "diagonal" }},
		{name: "unknown led mode", mutate: func(c *GapLaserConfig) { c.ArenaLEDMode = "strobe" }},
		{name: "zero frequency", mutate: func(c *GapLaserConfig) { c.LaserFreqsHz = FloatList{0} }},
		{name: "duty above one", mutate: func(c *GapLaserConfig) { c.LaserDutyCycles = FloatList{1.5} }},
		{name: "negative duration", mutate: func(c *GapLaserConfig) { c.LaserDurationsMs = FloatList{-1} }},
		{name: "negative noise", mutate: func(c *GapLaserConfig) { c.NoiseAmplitude = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("valid baseline passes", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("empty condition lists are valid", func(t *testing.T) {
		cfg := valid()
		cfg.LaserFreqsHz = nil
		cfg.LaserDurationsMs = nil
		assert.NoError(t, cfg.Validate(), "an empty condition space disables the laser but is not an error")
	})
}

func TestParseGapLaserConfig_InvalidYAML(t *testing.T) {
	_, err := ParseGapLaserConfig([]byte("laser_freq: {not: a list}"))
	assert.Error(t, err)
}

func TestParseTuningCurveConfig(t *testing.T) {
	cfg, err := ParseTuningCurveConfig([]byte(`
inter_stimulus_interval: 500
frequencies: [5000, 10000]
amplitudes: [0.1, 0.2]
duration: 100
`))
	require.NoError(t, err)
	assert.Equal(t, FloatList{5000, 10000}, cfg.FrequenciesHz)
	assert.Equal(t, FloatList{0.1, 0.2}, cfg.Amplitudes)
	assert.Equal(t, 100.0, cfg.ToneDurationMs)
}

func TestTuningCurveConfig_Validate(t *testing.T) {
	valid := func() TuningCurveConfig {
		return TuningCurveConfig{
			InterStimulusIntervalMs: 500,
			FrequenciesHz:           FloatList{5000},
			Amplitudes:              FloatList{0.1},
			ToneDurationMs:          100,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *TuningCurveConfig)
	}{
		{name: "zero interval", mutate: func(c *TuningCurveConfig) { c.InterStimulusIntervalMs = 0 }},
		{name: "empty frequencies", mutate: func(c *TuningCurveConfig) { c.FrequenciesHz = nil }},
		{name: "empty amplitudes", mutate: func(c *TuningCurveConfig) { c.Amplitudes = nil }},
		{name: "zero frequency", mutate: func(c *TuningCurveConfig) { c.FrequenciesHz = FloatList{0} }},
		{name: "amplitude above one", mutate: func(c *TuningCurveConfig) { c.Amplitudes = FloatList{1.5} }},
		{name: "zero duration", mutate: func(c *TuningCurveConfig) { c.ToneDurationMs = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLEDMode(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    LEDMode
		expectedErr bool
	}{
		{name: "on", input: "on", expected: LEDAlwaysOn},
		{name: "always_on alias", input: "always_on", expected: LEDAlwaysOn},
		{name: "stim", input: "stim", expected: LEDDuringStimulus},
		{name: "during_stimulus alias", input: "during_stimulus", expected: LEDDuringStimulus},
		{name: "laser", input: "laser", expected: LEDAtIntervention},
		{name: "at_intervention alias", input: "AT_INTERVENTION", expected: LEDAtIntervention},
		{name: "invalid", input: "strobe", expectedErr: true},
		{name: "empty", input: "", expectedErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := ParseLEDMode(tt.input)
			if tt.expectedErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}
