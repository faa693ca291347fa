package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Next(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Next()
	clock.Next()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	clock := NewDeterministicClock()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				clock.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), clock.Current())
}

func TestFixedSessionID(t *testing.T) {
	g := NewFixedSessionID("abc")
	assert.Equal(t, "abc", g.Generate())
	assert.Equal(t, "abc", g.Generate())

	assert.Equal(t, DefaultSessionID, NewFixedSessionID("").Generate())
}

func TestSampleStory_Fresh(t *testing.T) {
	a := SampleStory()
	b := SampleStory()
	a.Story.Nodes[0].ID = "changed"
	assert.Equal(t, "arrival", b.Story.Nodes[0].ID)
}
