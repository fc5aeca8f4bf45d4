package rig

import (
	"sync"
	"time"

	"github.com/auralab/rig/internal/buffer"
)

// TrialEventKind names a category of trial lifecycle event.
type TrialEventKind string

const (
	// EventTrialStarted fires when a stage begins stimulus presentation.
	EventTrialStarted TrialEventKind = "trial_started"

	// EventStimulusEnded fires when the stimulus-end callback has drained
	// the trigger schedule.
	EventStimulusEnded TrialEventKind = "stimulus_ended"

	// EventLaserFired fires when an intervention pulse script is triggered.
	EventLaserFired TrialEventKind = "laser_fired"

	// EventSessionEnded fires once when the task is torn down.
	EventSessionEnded TrialEventKind = "session_ended"
)

// TrialEvent is one observation of the trial lifecycle, published by tasks
// through an [EventHub].
type TrialEvent struct {
	Kind     TrialEventKind
	TrialNum int
	Time     time.Time

	// ScriptId is set on EventLaserFired: the pulse script that fired.
	ScriptId string
}

// UnsubscribeFunc cancels an event subscription. After calling, the
// subscription channel closes once pending events drain. Safe to call
// multiple times.
type UnsubscribeFunc func()

// eventSubscription is a single subscription to the hub.
type eventSubscription struct {
	id     uint64
	buffer *buffer.Unbounded[TrialEvent]
}

// EventHub distributes [TrialEvent]s to subscribers. Publishing never
// blocks: each subscriber is backed by an unbounded buffer, so the hardware
// callback thread and the trial control thread are never stalled by a slow
// consumer.
//
// All methods are safe for concurrent use.
type EventHub struct {
	mu sync.RWMutex

	allSubscribers []*eventSubscription
	byKind         map[TrialEventKind][]*eventSubscription

	closed bool
	nextId uint64
}

// NewEventHub creates an EventHub with no subscribers.
func NewEventHub() *EventHub {
	return &EventHub{
		byKind: make(map[TrialEventKind][]*eventSubscription),
	}
}

// SubscribeAll creates a subscription receiving every event. Returns the
// delivery channel and an unsubscribe function. On a closed hub the channel
// is already closed.
func (h *EventHub) SubscribeAll() (<-chan TrialEvent, UnsubscribeFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan TrialEvent)
		close(ch)
		return ch, func() {}
	}

	sub := &eventSubscription{
		id:     h.nextId,
		buffer: buffer.NewUnbounded[TrialEvent](),
	}
	h.nextId++
	h.allSubscribers = append(h.allSubscribers, sub)

	unsubscribe := func() {
		h.unsubscribeAll(sub)
	}
	return sub.buffer.Receive(), unsubscribe
}

// unsubscribeAll removes a subscription from allSubscribers.
func (h *EventHub) unsubscribeAll(sub *eventSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub.buffer.Close()

	for i, s := range h.allSubscribers {
		if s.id == sub.id {
			h.allSubscribers = append(h.allSubscribers[:i], h.allSubscribers[i+1:]...)
			return
		}
	}
}

// SubscribeKind creates a subscription receiving only events of the given
// kind. Returns (nil, nil) if kind is empty.
func (h *EventHub) SubscribeKind(kind TrialEventKind) (<-chan TrialEvent, UnsubscribeFunc) {
	if kind == "" {
		return nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan TrialEvent)
		close(ch)
		return ch, func() {}
	}

	sub := &eventSubscription{
		id:     h.nextId,
		buffer: buffer.NewUnbounded[TrialEvent](),
	}
	h.nextId++
	h.byKind[kind] = append(h.byKind[kind], sub)

	unsubscribe := func() {
		h.unsubscribeKind(kind, sub)
	}
	return sub.buffer.Receive(), unsubscribe
}

// unsubscribeKind removes a subscription from byKind.
func (h *EventHub) unsubscribeKind(kind TrialEventKind, sub *eventSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub.buffer.Close()

	subs := h.byKind[kind]
	for i, s := range subs {
		if s.id == sub.id {
			h.byKind[kind] = append(subs[:i], subs[i+1:]...)
			if len(h.byKind[kind]) == 0 {
				delete(h.byKind, kind)
			}
			return
		}
	}
}

// Emit delivers the event to all relevant subscribers. Never blocks; a nil
// hub is a no-op so tasks can run without observers.
func (h *EventHub) Emit(event TrialEvent) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, sub := range h.allSubscribers {
		sub.buffer.Send(event)
	}
	for _, sub := range h.byKind[event.Kind] {
		sub.buffer.Send(event)
	}
}

// Close closes all subscription channels after pending events drain. Safe
// to call multiple times; a nil hub is a no-op.
func (h *EventHub) Close() {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for _, sub := range h.allSubscribers {
		sub.buffer.Close()
	}
	for _, subs := range h.byKind {
		for _, sub := range subs {
			sub.buffer.Close()
		}
	}
}
