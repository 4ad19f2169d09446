package testutil

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepCounter(t *testing.T) {
	c := NewStepCounter()
	assert.Zero(t, c.Last())

	got := []int64{c.Next(), c.Next(), c.Next()}
	assert.Equal(t, []int64{1, 2, 3}, got)
	assert.Equal(t, int64(3), c.Last())
}

func TestStepCounterConcurrentClaimsAreDense(t *testing.T) {
	c := NewStepCounter()
	const workers, perWorker = 8, 250

	var (
		mu     sync.Mutex
		claims []int64
		wg     sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			for range perWorker {
				local = append(local, c.Next())
			}
			mu.Lock()
			claims = append(claims, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	slices.Sort(claims)
	require.Len(t, claims, workers*perWorker)
	for i, n := range claims {
		require.Equal(t, int64(i+1), n)
	}
}
