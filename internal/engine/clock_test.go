package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtZero(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())
}

func TestClock_Next(t *testing.T) {
	c := NewClock()

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(3), c.Next())
	assert.Equal(t, int64(3), c.Current())
}

func TestClock_ConcurrentUnique(t *testing.T) {
	c := NewClock()
	const goroutines = 50
	const calls = 100

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*calls)
	assert.Equal(t, int64(goroutines*calls), c.Current())
}

func TestUUIDv7Generator_Sortable(t *testing.T) {
	g := UUIDv7Generator{}
	a := g.Generate()
	b := g.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, a[:13], b[:13], "timestamp prefix should not decrease")
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("s1", "s2")
	assert.Equal(t, "s1", g.Generate())
	assert.Equal(t, "s2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
