package rig

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopStage(name string) Stage {
	return Stage{
		Name: name,
		Run: func(ctx context.Context) (*TrialResult, error) {
			return &TrialResult{Stage: name}, nil
		},
	}
}

func TestStageMachine_CyclesThroughStages(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	machine, err := NewStageMachine(
		[]Stage{noopStage("a"), noopStage("b")},
		nil, clock, 10*time.Millisecond,
	)
	require.NoError(t, err)
	defer machine.Close()

	var names []string
	for i := 0; i < 5; i++ {
		result, err := machine.Step(context.Background())
		require.NoError(t, err)
		names = append(names, result.Stage)
		clock.Advance(10 * time.Millisecond)
	}

	// The cycle has no terminal stage, it wraps around indefinitely.
	assert.Equal(t, []string{"a", "b", "a", "b", "a"}, names)
}

func TestStageMachine_StepClearsSignalThenTimerSetsIt(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	signal := NewStageSignal()
	signal.Set() // left over from a previous cycle

	machine, err := NewStageMachine([]Stage{noopStage("only")}, signal, clock, 10*time.Millisecond)
	require.NoError(t, err)
	defer machine.Close()

	_, err = machine.Step(context.Background())
	require.NoError(t, err)
	assert.False(t, signal.IsSet(), "entering a stage clears the advance signal")

	clock.Advance(9 * time.Millisecond)
	assert.False(t, signal.IsSet(), "signal must not be set before the interval elapses")

	clock.Advance(1 * time.Millisecond)
	assert.True(t, signal.IsSet())
	assert.NoError(t, machine.AwaitAdvance(context.Background()))
}

func TestStageMachine_AwaitAdvanceBlocksUntilTimer(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	machine, err := NewStageMachine([]Stage{noopStage("only")}, nil, clock, 10*time.Millisecond)
	require.NoError(t, err)
	defer machine.Close()

	_, err = machine.Step(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, machine.AwaitAdvance(ctx), context.DeadlineExceeded)

	clock.Advance(10 * time.Millisecond)
	assert.NoError(t, machine.AwaitAdvance(context.Background()))
}

func TestStageMachine_StageErrorWrapsStageName(t *testing.T) {
	boom := errors.New("boom")
	machine, err := NewStageMachine([]Stage{{
		Name: "failing",
		Run: func(ctx context.Context) (*TrialResult, error) {
			return nil, boom
		},
	}}, nil, NewMockClock(time.Unix(0, 0)), 10*time.Millisecond)
	require.NoError(t, err)
	defer machine.Close()

	_, err = machine.Step(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
}

func TestStageMachine_CloseCancelsPendingTimer(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	machine, err := NewStageMachine([]Stage{noopStage("only")}, nil, clock, 10*time.Millisecond)
	require.NoError(t, err)

	_, err = machine.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, clock.PendingTimers())

	machine.Close()
	assert.Equal(t, 0, clock.PendingTimers(), "teardown must leave no armed timer behind")
}

func TestStageMachine_CloseReleasesWaiterAndRejectsSteps(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	machine, err := NewStageMachine([]Stage{noopStage("only")}, nil, clock, time.Hour)
	require.NoError(t, err)

	_, err = machine.Step(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- machine.AwaitAdvance(context.Background())
	}()

	machine.Close()
	select {
	case err := <-done:
		assert.NoError(t, err, "Close releases a blocked AwaitAdvance")
	case <-time.After(time.Second):
		t.Fatal("AwaitAdvance not released by Close")
	}

	_, err = machine.Step(context.Background())
	assert.ErrorIs(t, err, ErrMachineClosed)

	// Close is idempotent.
	machine.Close()
}

func TestStageMachine_ReArmReplacesPendingTimer(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	machine, err := NewStageMachine([]Stage{noopStage("only")}, nil, clock, 10*time.Millisecond)
	require.NoError(t, err)
	defer machine.Close()

	_, err = machine.Step(context.Background())
	require.NoError(t, err)
	_, err = machine.Step(context.Background())
	require.NoError(t, err)

	// The second Step stopped the first timer before arming its own.
	assert.Equal(t, 1, clock.PendingTimers())
}

func TestNewStageMachine_Validation(t *testing.T) {
	tests := []struct {
		name   string
		stages []Stage
		isi    time.Duration
	}{
		{name: "no stages", stages: nil, isi: time.Second},
		{name: "nil run function", stages: []Stage{{Name: "broken"}}, isi: time.Second},
		{name: "zero interval", stages: []Stage{noopStage("a")}, isi: 0},
		{name: "negative interval", stages: []Stage{noopStage("a")}, isi: -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStageMachine(tt.stages, nil, nil, tt.isi)
			assert.Error(t, err)
		})
	}
}
