package rig

import (
	"context"
	"time"
)

// Task is a steppable trial task. Both [GapLaserTask] and [TuningCurveTask]
// implement it; the [TaskRunner] only relies on this contract.
type Task interface {
	// Step runs the next stage of the trial cycle and returns its record.
	Step(ctx context.Context) (*TrialResult, error)

	// AwaitAdvance blocks until the stage-advance signal releases or ctx
	// is done.
	AwaitAdvance(ctx context.Context) error

	// End tears the task down, cancelling any pending timer before
	// releasing hardware. Must be safe to call multiple times.
	End() error
}

// TerminationReason indicates why a session ended.
type TerminationReason string

const (
	// TerminationCompleted means the configured trial count was reached.
	TerminationCompleted TerminationReason = "completed"

	// TerminationCanceled means the context was canceled.
	TerminationCanceled TerminationReason = "canceled"

	// TerminationTaskError means a trial stage returned an error.
	TerminationTaskError TerminationReason = "task_error"
)

// RunnerConfig holds configuration options for the TaskRunner.
type RunnerConfig struct {
	// MaxTrials is the number of trials to run before ending the session
	// normally. 0 runs until the context is canceled.
	MaxTrials int
}

// SessionResult is the final outcome of one [TaskRunner.Run] call.
type SessionResult struct {
	// Trials holds every trial record, in order.
	Trials []*TrialResult

	// Reason indicates why the session ended.
	Reason TerminationReason

	// Err is the error that ended the session (nil when Reason is
	// TerminationCompleted), or a teardown error surfaced by End.
	Err error

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// TaskRunner drives a [Task]'s trial cycle: per trial it fires BeforeTrial
// hooks, steps the task, fires AfterTrial hooks, then blocks on the
// stage-advance signal. The runner owns the task's lifecycle end: Run
// always calls End before returning, and AfterSession hooks always fire if
// BeforeSession hooks fired, even on error.
type TaskRunner struct {
	task   Task
	config RunnerConfig
	hooks  *HookRegistry
}

// NewTaskRunner creates a runner for the given task.
func NewTaskRunner(task Task, config RunnerConfig) *TaskRunner {
	return &TaskRunner{
		task:   task,
		config: config,
		hooks:  NewHookRegistry(),
	}
}

// WithHooks replaces the runner's hook registry. Returns the runner for
// chaining.
func (r *TaskRunner) WithHooks(hooks *HookRegistry) *TaskRunner {
	r.hooks = hooks
	return r
}

// RegisterHook adds a hook to the runner's registry. The hook can implement
// any combination of hook interfaces. Returns the runner for chaining.
func (r *TaskRunner) RegisterHook(hook any) *TaskRunner {
	r.hooks.Register(hook)
	return r
}

// Run executes the trial cycle until MaxTrials is reached, the context is
// canceled, or a stage errors. It never returns nil.
func (r *TaskRunner) Run(ctx context.Context) *SessionResult {
	result := &SessionResult{
		StartTime: time.Now(),
		Trials:    make([]*TrialResult, 0),
	}

	beforeSessionFired := false
	defer func() {
		// Teardown before AfterSession so hooks observe the final state.
		if err := r.task.End(); err != nil && result.Err == nil {
			result.Err = err
		}

		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)

		if beforeSessionFired && r.hooks != nil {
			r.hooks.FireAfterSession(ctx, AfterSessionEvent{Result: result})
		}
	}()

	if r.hooks != nil {
		r.hooks.FireBeforeSession(ctx, BeforeSessionEvent{})
	}
	beforeSessionFired = true

	trial := 0
	for {
		if err := ctx.Err(); err != nil {
			result.Err = err
			result.Reason = TerminationCanceled
			return result
		}
		if r.config.MaxTrials > 0 && trial >= r.config.MaxTrials {
			result.Reason = TerminationCompleted
			return result
		}

		if r.hooks != nil {
			r.hooks.FireBeforeTrial(ctx, BeforeTrialEvent{TrialNum: trial})
		}

		stageStart := time.Now()
		record, err := r.task.Step(ctx)
		if err != nil {
			if r.hooks != nil {
				r.hooks.FireError(ctx, ErrorEvent{TrialNum: trial, Err: err})
			}
			result.Err = err
			result.Reason = TerminationTaskError
			return result
		}
		result.Trials = append(result.Trials, record)

		if r.hooks != nil {
			r.hooks.FireAfterTrial(ctx, AfterTrialEvent{
				TrialNum: trial,
				Record:   record,
				Duration: time.Since(stageStart),
			})
		}

		if err := r.task.AwaitAdvance(ctx); err != nil {
			result.Err = err
			result.Reason = TerminationCanceled
			return result
		}
		trial++
	}
}
