package rig

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// Hook Events
// -----------------------------------------------------------------------------

// HookEvent is a marker interface for all hook events.
type HookEvent interface {
	hookEvent()
}

// BeforeSessionEvent is emitted once before the first trial begins.
type BeforeSessionEvent struct{}

func (BeforeSessionEvent) hookEvent() {}

// AfterSessionEvent is emitted once after the session ends. It is always
// emitted if BeforeSessionEvent was, even when the session ends with an
// error.
type AfterSessionEvent struct {
	// Result is the final session result.
	Result *SessionResult
}

func (AfterSessionEvent) hookEvent() {}

// BeforeTrialEvent is emitted before each trial stage runs.
type BeforeTrialEvent struct {
	// TrialNum is the zero-based trial number about to run.
	TrialNum int
}

func (BeforeTrialEvent) hookEvent() {}

// AfterTrialEvent is emitted after a trial stage returns and before the
// runner blocks on the stage-advance signal.
type AfterTrialEvent struct {
	// TrialNum is the zero-based trial number that just ran.
	TrialNum int

	// Record is the trial record the stage returned.
	Record *TrialResult

	// Duration is how long the stage function took.
	Duration time.Duration
}

func (AfterTrialEvent) hookEvent() {}

// ErrorEvent is emitted when a trial stage returns an error. The error is
// still returned in the session result.
type ErrorEvent struct {
	// TrialNum is the trial where the error occurred.
	TrialNum int

	// Err is the stage error.
	Err error
}

func (ErrorEvent) hookEvent() {}

// -----------------------------------------------------------------------------
// Hook Interfaces
// -----------------------------------------------------------------------------
//
// Hooks observe the trial lifecycle: register any value implementing one or
// more of the interfaces below with [HookRegistry.Register] and pass the
// registry to the runner. Hooks are called in registration order, on the
// runner's goroutine; a slow hook delays the trial cadence.
//
// Hooks do not return errors. A panicking hook stops the session.

// BeforeSessionHook is notified once before the first trial.
type BeforeSessionHook interface {
	OnBeforeSession(ctx context.Context, event BeforeSessionEvent)
}

// AfterSessionHook is notified once after the session ends. Always called
// if OnBeforeSession was called, even on error.
type AfterSessionHook interface {
	OnAfterSession(ctx context.Context, event AfterSessionEvent)
}

// BeforeTrialHook is notified before each trial stage runs.
type BeforeTrialHook interface {
	OnBeforeTrial(ctx context.Context, event BeforeTrialEvent)
}

// AfterTrialHook is notified after each trial stage returns.
type AfterTrialHook interface {
	OnAfterTrial(ctx context.Context, event AfterTrialEvent)
}

// ErrorHook is notified when a trial stage returns an error.
type ErrorHook interface {
	OnError(ctx context.Context, event ErrorEvent)
}

// -----------------------------------------------------------------------------
// Hook Registry
// -----------------------------------------------------------------------------

// HookRegistry stores hooks in registration order and dispatches events to
// those implementing the relevant interface.
//
// The registry is not safe for concurrent mutation: register all hooks
// before starting the runner. Fire methods are only called by the runner.
type HookRegistry struct {
	hooks []any
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		hooks: make([]any, 0),
	}
}

// Register adds a hook. The hook can implement any combination of hook
// interfaces; it only receives events for the interfaces it implements.
// Returns the registry for chaining.
func (r *HookRegistry) Register(hook any) *HookRegistry {
	r.hooks = append(r.hooks, hook)
	return r
}

// FireBeforeSession dispatches to all BeforeSessionHook implementations.
func (r *HookRegistry) FireBeforeSession(ctx context.Context, event BeforeSessionEvent) {
	for _, h := range r.hooks {
		if hook, ok := h.(BeforeSessionHook); ok {
			hook.OnBeforeSession(ctx, event)
		}
	}
}

// FireAfterSession dispatches to all AfterSessionHook implementations.
func (r *HookRegistry) FireAfterSession(ctx context.Context, event AfterSessionEvent) {
	for _, h := range r.hooks {
		if hook, ok := h.(AfterSessionHook); ok {
			hook.OnAfterSession(ctx, event)
		}
	}
}

// FireBeforeTrial dispatches to all BeforeTrialHook implementations.
func (r *HookRegistry) FireBeforeTrial(ctx context.Context, event BeforeTrialEvent) {
	for _, h := range r.hooks {
		if hook, ok := h.(BeforeTrialHook); ok {
			hook.OnBeforeTrial(ctx, event)
		}
	}
}

// FireAfterTrial dispatches to all AfterTrialHook implementations.
func (r *HookRegistry) FireAfterTrial(ctx context.Context, event AfterTrialEvent) {
	for _, h := range r.hooks {
		if hook, ok := h.(AfterTrialHook); ok {
			hook.OnAfterTrial(ctx, event)
		}
	}
}

// FireError dispatches to all ErrorHook implementations.
func (r *HookRegistry) FireError(ctx context.Context, event ErrorEvent) {
	for _, h := range r.hooks {
		if hook, ok := h.(ErrorHook); ok {
			hook.OnError(ctx, event)
		}
	}
}
