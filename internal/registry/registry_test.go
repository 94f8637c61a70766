package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func entry(id string) Entry {
	return Entry{JobID: id, Satellite: "NOAA 19", Since: time.Now()}
}

func TestAcquireReleaseCycle(t *testing.T) {
	r := New()

	assert.True(t, r.TryAcquire("NOAA 19", entry("a")))
	assert.True(t, r.Held("NOAA 19"))

	// Second acquire for the same satellite must fail while held.
	assert.False(t, r.TryAcquire("NOAA 19", entry("b")))

	// A different satellite is unaffected.
	assert.True(t, r.TryAcquire("NOAA 18", entry("c")))

	r.Release("NOAA 19")
	assert.False(t, r.Held("NOAA 19"))
	assert.True(t, r.TryAcquire("NOAA 19", entry("d")))
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := New()
	r.Release("NOAA 19") // never held

	assert.True(t, r.TryAcquire("NOAA 19", entry("a")))
	r.Release("NOAA 19")
	r.Release("NOAA 19")
	assert.False(t, r.Held("NOAA 19"))
}

func TestActiveSorted(t *testing.T) {
	r := New()
	r.TryAcquire("NOAA 19", Entry{JobID: "1", Satellite: "NOAA 19"})
	r.TryAcquire("METEOR-M2", Entry{JobID: "2", Satellite: "METEOR-M2"})
	r.TryAcquire("NOAA 15", Entry{JobID: "3", Satellite: "NOAA 15"})

	active := r.Active()
	assert.Len(t, active, 3)
	assert.Equal(t, "METEOR-M2", active[0].Satellite)
	assert.Equal(t, "NOAA 15", active[1].Satellite)
	assert.Equal(t, "NOAA 19", active[2].Satellite)
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	r := New()

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan string, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if r.TryAcquire("NOAA 19", entry("racer")) {
				wins <- "won"
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}
