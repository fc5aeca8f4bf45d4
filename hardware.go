package rig

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownSeries is returned when a series id that was never stored is
// fired. Firing an unknown id is a programming error, not a recoverable
// condition: it means trial setup and hardware installation disagree.
var ErrUnknownSeries = errors.New("rig: unknown series id")

// DigitalOut is the boundary to a digital output channel (laser driver,
// LED, speaker gate). The physical GPIO implementation lives outside this
// package; tasks only rely on this contract:
//
//   - StoreSeries installs a pre-compiled pulse script under an id. Storing
//     the same id again replaces the script (idempotent per id).
//   - Series fires a previously stored script. The underlying driver is
//     expected to execute it with sub-millisecond fidelity once triggered.
//   - Turn sets the output level statically.
type DigitalOut interface {
	StoreSeries(id string, values []int, durationsMs []float64) error
	Series(id string) error
	Turn(on bool) error
}

// StoredSeries is a pulse script as recorded by [MemoryDigitalOut].
type StoredSeries struct {
	Values      []int
	DurationsMs []float64
}

// MemoryDigitalOut is an in-memory [DigitalOut] for tests and dry runs. It
// records every stored script and every fired id, and fails loudly with
// [ErrUnknownSeries] when an unknown id is fired.
//
// All methods are safe for concurrent use.
type MemoryDigitalOut struct {
	mu     sync.Mutex
	series map[string]StoredSeries
	fired  []string
	level  bool
}

// NewMemoryDigitalOut creates an empty MemoryDigitalOut.
func NewMemoryDigitalOut() *MemoryDigitalOut {
	return &MemoryDigitalOut{
		series: make(map[string]StoredSeries),
	}
}

// StoreSeries records the script under id, replacing any previous script
// with the same id. The input slices are copied.
func (d *MemoryDigitalOut) StoreSeries(id string, values []int, durationsMs []float64) error {
	if len(values) != len(durationsMs) {
		return fmt.Errorf("rig: series %q has %d values but %d durations", id, len(values), len(durationsMs))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := StoredSeries{
		Values:      make([]int, len(values)),
		DurationsMs: make([]float64, len(durationsMs)),
	}
	copy(stored.Values, values)
	copy(stored.DurationsMs, durationsMs)
	d.series[id] = stored
	return nil
}

// Series records that the script with the given id was fired.
func (d *MemoryDigitalOut) Series(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.series[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSeries, id)
	}
	d.fired = append(d.fired, id)
	return nil
}

// Turn sets the static output level.
func (d *MemoryDigitalOut) Turn(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.level = on
	return nil
}

// Stored returns the script stored under id, if any.
func (d *MemoryDigitalOut) Stored(id string) (StoredSeries, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.series[id]
	return s, ok
}

// StoredCount returns the number of distinct stored series.
func (d *MemoryDigitalOut) StoredCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.series)
}

// Fired returns a copy of the fired ids, in firing order.
func (d *MemoryDigitalOut) Fired() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	fired := make([]string, len(d.fired))
	copy(fired, d.fired)
	return fired
}

// Level returns the last static level set by Turn.
func (d *MemoryDigitalOut) Level() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

// Compile-time check that MemoryDigitalOut implements DigitalOut.
var _ DigitalOut = (*MemoryDigitalOut)(nil)
