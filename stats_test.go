package rig

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStats_IncrAndAdd(t *testing.T) {
	stats := NewSessionStats()

	stats.Incr(StatTrials)
	stats.Incr(StatTrials)
	stats.Add(StatStimuliPlayed, 5)

	assert.Equal(t, int64(2), stats.Get(StatTrials))
	assert.Equal(t, int64(5), stats.Get(StatStimuliPlayed))
	assert.Equal(t, int64(0), stats.Get("never-touched"))
}

func TestSessionStats_Snapshot(t *testing.T) {
	stats := NewSessionStats()
	stats.Incr(StatTrials)
	stats.Incr(StatLaserTrials)

	snapshot := stats.Snapshot()
	assert.Equal(t, map[string]int64{
		StatTrials:      1,
		StatLaserTrials: 1,
	}, snapshot)

	// The snapshot is a copy: mutating it does not touch the live counters.
	snapshot[StatTrials] = 100
	assert.Equal(t, int64(1), stats.Get(StatTrials))
}

func TestSessionStats_NilReceiverIsNoop(t *testing.T) {
	var stats *SessionStats

	stats.Incr(StatTrials)
	stats.Add(StatTrials, 10)
	assert.Equal(t, int64(0), stats.Get(StatTrials))
	assert.Empty(t, stats.Snapshot())
}

func TestSessionStats_ConcurrentIncrements(t *testing.T) {
	stats := NewSessionStats()

	const goroutines = 8
	const perGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				stats.Incr(StatTrials)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*perGoroutine), stats.Get(StatTrials))
}
