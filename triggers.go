package rig

import "sync"

// Trigger is a zero-argument deferred action queued on a gate.
type Trigger func()

// TriggerSchedule maps gate names to ordered deques of [Trigger]s to run
// when that gate fires. It is the single shared mutable resource between the
// trial-setup producer and the stimulus-end consumer, so every structural
// change and the full drain-and-invoke path run under one schedule-wide
// lock.
//
// Mutation happens either through the single-call convenience methods
// (PushFront, PushBack, Drain, ...) which each acquire the lock for the one
// call, or through [TriggerSchedule.Update], which holds the lock across an
// entire read-modify-write sequence. Sequences like "check the queue, then
// decide, then insert" are not atomic unless the whole sequence runs inside
// one Update call.
//
// The lock is not reentrant: triggers invoked by Fire, and functions passed
// to Update, must not call back into the schedule.
type TriggerSchedule struct {
	mu    sync.Mutex
	gates map[string][]Trigger
}

// NewTriggerSchedule creates an empty TriggerSchedule.
func NewTriggerSchedule() *TriggerSchedule {
	return &TriggerSchedule{
		gates: make(map[string][]Trigger),
	}
}

// TriggerTx provides access to the schedule while its lock is held. A
// TriggerTx is only valid inside the [TriggerSchedule.Update] call that
// produced it.
type TriggerTx struct {
	s *TriggerSchedule
}

// Update runs fn with the schedule lock held, releasing it on every exit
// path, including a panic propagating out of fn. Use Update whenever a
// decision and the mutations it implies must be observed atomically.
func (s *TriggerSchedule) Update(fn func(tx *TriggerTx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&TriggerTx{s: s})
}

// PushFront inserts t at the head of the gate's deque. Use it to guarantee
// an action (an intervention pulse, an LED-on script) runs before any
// actions already queued for the same gate.
func (tx *TriggerTx) PushFront(gate string, t Trigger) {
	queue := tx.s.gates[gate]
	tx.s.gates[gate] = append([]Trigger{t}, queue...)
}

// PushBack appends t to the tail of the gate's deque.
func (tx *TriggerTx) PushBack(gate string, t Trigger) {
	tx.s.gates[gate] = append(tx.s.gates[gate], t)
}

// Drain removes and returns the gate's triggers in FIFO order.
func (tx *TriggerTx) Drain(gate string) []Trigger {
	queue := tx.s.gates[gate]
	delete(tx.s.gates, gate)
	return queue
}

// Len returns the number of triggers queued on the gate.
func (tx *TriggerTx) Len(gate string) int {
	return len(tx.s.gates[gate])
}

// Clear discards the gate's triggers without invoking them.
func (tx *TriggerTx) Clear(gate string) {
	delete(tx.s.gates, gate)
}

// ClearAll discards every gate's triggers without invoking them.
func (tx *TriggerTx) ClearAll() {
	tx.s.gates = make(map[string][]Trigger)
}

// PushFront inserts t at the head of the gate's deque under the lock.
func (s *TriggerSchedule) PushFront(gate string, t Trigger) {
	s.Update(func(tx *TriggerTx) { tx.PushFront(gate, t) })
}

// PushBack appends t to the tail of the gate's deque under the lock.
func (s *TriggerSchedule) PushBack(gate string, t Trigger) {
	s.Update(func(tx *TriggerTx) { tx.PushBack(gate, t) })
}

// Drain removes and returns the gate's triggers in FIFO order under the
// lock.
func (s *TriggerSchedule) Drain(gate string) []Trigger {
	var drained []Trigger
	s.Update(func(tx *TriggerTx) { drained = tx.Drain(gate) })
	return drained
}

// Len returns the number of triggers queued on the gate under the lock.
func (s *TriggerSchedule) Len(gate string) int {
	var n int
	s.Update(func(tx *TriggerTx) { n = tx.Len(gate) })
	return n
}

// Fire drains the gate and invokes each trigger in insertion order, holding
// the lock for the entire drain-and-invoke sequence so no producer can
// observe or mutate a partially consumed deque. Entries are discarded after
// invocation; each trial's setup re-populates what it needs.
//
// Returns the number of triggers invoked. Firing an empty or unknown gate
// is a no-op.
func (s *TriggerSchedule) Fire(gate string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.gates[gate]
	delete(s.gates, gate)
	for _, t := range queue {
		t()
	}
	return len(queue)
}
