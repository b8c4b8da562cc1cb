package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StepsStartAtOne(t *testing.T) {
	c := NewClock()
	assert.Zero(t, c.Steps())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Steps())
}

func TestClock_ConcurrentStampsAreUnique(t *testing.T) {
	c := NewClock()
	seen := make([]int64, 50)

	var wg sync.WaitGroup
	for i := range seen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen[i] = c.Next()
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int64{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
		21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40,
		41, 42, 43, 44, 45, 46, 47, 48, 49, 50,
	}, seen)
}
