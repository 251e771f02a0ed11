package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_StartsAtZero(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())
}

func TestDeterministicClock_NextIncrementsMonotonically(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(3), clock.Next())
	assert.Equal(t, int64(3), clock.Current())
}

func TestDeterministicClock_Advance(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Next()

	assert.Equal(t, int64(301), clock.Advance(300))
	assert.Equal(t, int64(302), clock.Next())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Next()
	clock.Next()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()
	const goroutines = 50
	const callsEach = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	seen := make(chan int64, goroutines*callsEach)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				seen <- clock.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		assert.False(t, unique[v], "duplicate seq %d", v)
		unique[v] = true
	}
	assert.Len(t, unique, goroutines*callsEach)
	assert.Equal(t, int64(goroutines*callsEach), clock.Current())
}
