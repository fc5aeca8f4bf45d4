package rig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProtocol_Valid(t *testing.T) {
	protocol, err := ParseProtocol([]byte(`[
		{"step_name": "tuning", "task_type": "tuning_curve",
		 "params": {"frequencies": [5000, 10000]}},
		{"step_name": "gap detection", "task_type": "gap_laser"}
	]`))
	require.NoError(t, err)
	require.Len(t, protocol.Steps, 2)

	assert.Equal(t, "tuning", protocol.Steps[0].Name)
	assert.Equal(t, "tuning_curve", protocol.Steps[0].TaskType)
	assert.Contains(t, protocol.Steps[0].Params, "frequencies")

	assert.Equal(t, "gap detection", protocol.Steps[1].Name)
	assert.Nil(t, protocol.Steps[1].Params)
}

func TestParseProtocol_StepOrderPreserved(t *testing.T) {
	protocol, err := ParseProtocol([]byte(`[
		{"step_name": "a", "task_type": "t"},
		{"step_name": "b", "task_type": "t"},
		{"step_name": "c", "task_type": "t"}
	]`))
	require.NoError(t, err)

	names := make([]string, len(protocol.Steps))
	for i, s := range protocol.Steps {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestParseProtocol_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "step_name: yaml"},
		{name: "not an array", input: `{"step_name": "a", "task_type": "t"}`},
		{name: "empty array", input: `[]`},
		{name: "missing task_type", input: `[{"step_name": "a"}]`},
		{name: "missing step_name", input: `[{"task_type": "t"}]`},
		{name: "empty step_name", input: `[{"step_name": "", "task_type": "t"}]`},
		{name: "params not an object", input: `[{"step_name": "a", "task_type": "t", "params": [1]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProtocol([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseProtocol_ValidationErrorNamesTheProblem(t *testing.T) {
	_, err := ParseProtocol([]byte(`[{"step_name": "a"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task_type", "the error must point at the missing field")
}
