package rig

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerSchedule_FireInvokesInInsertionOrder(t *testing.T) {
	s := NewTriggerSchedule()

	var order []int
	s.PushBack("gate", func() { order = append(order, 1) })
	s.PushBack("gate", func() { order = append(order, 2) })
	s.PushBack("gate", func() { order = append(order, 3) })

	n := s.Fire("gate")
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestTriggerSchedule_PushFrontRunsFirst(t *testing.T) {
	s := NewTriggerSchedule()

	var order []string
	s.PushBack("gate", func() { order = append(order, "queued") })
	s.PushFront("gate", func() { order = append(order, "urgent") })
	s.PushFront("gate", func() { order = append(order, "most urgent") })

	s.Fire("gate")
	assert.Equal(t, []string{"most urgent", "urgent", "queued"}, order)
}

func TestTriggerSchedule_FireDiscardsEntries(t *testing.T) {
	s := NewTriggerSchedule()

	calls := 0
	s.PushBack("gate", func() { calls++ })

	assert.Equal(t, 1, s.Fire("gate"))
	assert.Equal(t, 1, calls)

	// The deque is consumed; firing again is a no-op.
	assert.Equal(t, 0, s.Fire("gate"))
	assert.Equal(t, 1, calls)
}

func TestTriggerSchedule_FireUnknownGateIsNoop(t *testing.T) {
	s := NewTriggerSchedule()
	assert.Equal(t, 0, s.Fire("never-registered"))
}

func TestTriggerSchedule_GatesAreIndependent(t *testing.T) {
	s := NewTriggerSchedule()

	var fired []string
	s.PushBack("a", func() { fired = append(fired, "a") })
	s.PushBack("b", func() { fired = append(fired, "b") })

	s.Fire("a")
	assert.Equal(t, []string{"a"}, fired)
	assert.Equal(t, 1, s.Len("b"))
}

func TestTriggerSchedule_DrainReturnsWithoutInvoking(t *testing.T) {
	s := NewTriggerSchedule()

	calls := 0
	s.PushBack("gate", func() { calls++ })
	s.PushBack("gate", func() { calls++ })

	drained := s.Drain("gate")
	require.Len(t, drained, 2)
	assert.Equal(t, 0, calls, "Drain hands the triggers back, it does not run them")
	assert.Equal(t, 0, s.Len("gate"))

	for _, tr := range drained {
		tr()
	}
	assert.Equal(t, 2, calls)
}

func TestTriggerSchedule_UpdateIsAtomic(t *testing.T) {
	s := NewTriggerSchedule()

	// A decide-then-insert sequence inside one Update call observes its own
	// mutations and completes as a unit.
	s.Update(func(tx *TriggerTx) {
		assert.Equal(t, 0, tx.Len("gate"))
		tx.PushBack("gate", func() {})
		tx.PushFront("gate", func() {})
		assert.Equal(t, 2, tx.Len("gate"))
	})
	assert.Equal(t, 2, s.Len("gate"))
}

func TestTriggerSchedule_UpdateReleasesLockOnPanic(t *testing.T) {
	s := NewTriggerSchedule()

	require.Panics(t, func() {
		s.Update(func(tx *TriggerTx) {
			panic("boom")
		})
	})

	// The schedule stays usable: the lock was released on the panic path.
	s.PushBack("gate", func() {})
	assert.Equal(t, 1, s.Len("gate"))
}

func TestTriggerSchedule_ClearAll(t *testing.T) {
	s := NewTriggerSchedule()

	calls := 0
	s.PushBack("a", func() { calls++ })
	s.PushBack("b", func() { calls++ })

	s.Update(func(tx *TriggerTx) { tx.ClearAll() })

	assert.Equal(t, 0, s.Fire("a"))
	assert.Equal(t, 0, s.Fire("b"))
	assert.Equal(t, 0, calls)
}

func TestTriggerSchedule_ConcurrentProducerConsumer(t *testing.T) {
	const total = 10000

	s := NewTriggerSchedule()

	var mu sync.Mutex
	var seen []int

	var wg sync.WaitGroup
	wg.Add(2)

	// Producer: pushes sequence numbers in order, each under the lock.
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			i := i
			s.PushBack("gate", func() {
				mu.Lock()
				seen = append(seen, i)
				mu.Unlock()
			})
		}
	}()

	// Consumer: drains and invokes concurrently, each Fire under the lock.
	fired := 0
	go func() {
		defer wg.Done()
		for fired < total {
			fired += s.Fire("gate")
		}
	}()

	wg.Wait()

	require.Len(t, seen, total, "every pushed trigger runs exactly once")
	for i, v := range seen {
		require.Equal(t, i, v, "triggers must run in push order regardless of interleaving")
	}
	assert.Equal(t, 0, s.Len("gate"))
}
