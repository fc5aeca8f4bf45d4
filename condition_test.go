package rig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConditions_CartesianProduct(t *testing.T) {
	out := NewMemoryDigitalOut()

	conditions, err := BuildConditions([]float64{10}, []float64{20, 30}, []float64{0.1}, out)
	require.NoError(t, err)
	require.Len(t, conditions, 2)

	assert.NotEqual(t, conditions[0].ScriptId, conditions[1].ScriptId)
	assert.Equal(t, 2, out.StoredCount())

	for _, c := range conditions {
		stored, ok := out.Stored(c.ScriptId)
		require.True(t, ok, "script %q must be installed on the driver", c.ScriptId)

		var total float64
		for _, d := range stored.DurationsMs {
			total += d
		}
		assert.InDelta(t, c.DurationMs, total, 1e-6)
	}
}

func TestBuildConditions_EnumerationOrder(t *testing.T) {
	out := NewMemoryDigitalOut()

	conditions, err := BuildConditions([]float64{10, 20}, []float64{5, 7}, []float64{0.5}, out)
	require.NoError(t, err)

	// Duration outer, frequency middle, duty cycle inner.
	ids := make([]string, len(conditions))
	for i, c := range conditions {
		ids[i] = c.ScriptId
	}
	assert.Equal(t, []string{"10_5_0.5", "10_7_0.5", "20_5_0.5", "20_7_0.5"}, ids)
}

func TestBuildConditions_EmptyInputYieldsEmptySet(t *testing.T) {
	type input struct {
		durations []float64
		freqs     []float64
		duties    []float64
	}

	tests := []struct {
		name  string
		input input
	}{
		{name: "empty durations", input: input{durations: nil, freqs: []float64{20}, duties: []float64{0.1}}},
		{name: "empty frequencies", input: input{durations: []float64{10}, freqs: nil, duties: []float64{0.1}}},
		{name: "empty duty cycles", input: input{durations: []float64{10}, freqs: []float64{20}, duties: nil}},
		{name: "all empty", input: input{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewMemoryDigitalOut()

			conditions, err := BuildConditions(tt.input.durations, tt.input.freqs, tt.input.duties, out)
			require.NoError(t, err, "an empty parameter list is a valid, degenerate configuration")
			assert.Empty(t, conditions)
			assert.Equal(t, 0, out.StoredCount())
		})
	}
}

func TestBuildConditions_InvalidCombinationFails(t *testing.T) {
	out := NewMemoryDigitalOut()

	_, err := BuildConditions([]float64{10}, []float64{-5}, []float64{0.1}, out)
	assert.Error(t, err)
}

func TestConditionScriptId_Deterministic(t *testing.T) {
	assert.Equal(t, "10_20_0.1", ConditionScriptId(10, 20, 0.1))
	assert.Equal(t, ConditionScriptId(10, 20, 0.1), ConditionScriptId(10, 20, 0.1))
	assert.NotEqual(t, ConditionScriptId(10, 20, 0.1), ConditionScriptId(10, 20, 0.2))
	assert.NotEqual(t, ConditionScriptId(10, 20, 0.1), ConditionScriptId(10, 2, 0.1))
}

func TestMaxConditionDurationMs(t *testing.T) {
	assert.Equal(t, 0.0, MaxConditionDurationMs(nil))
	assert.Equal(t, 20.0, MaxConditionDurationMs([]PulseCondition{
		{DurationMs: 10},
		{DurationMs: 20},
		{DurationMs: 15},
	}))
}
