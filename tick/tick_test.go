package tick

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/bringup/resource"
)

func TestCounter(t *testing.T) {
	var c Counter
	assert.Zero(t, c.Load())

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Inc()
		}
		close(done)
	}()
	// Foreground reads race with the single writer and must never go backwards.
	last := uint32(0)
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		now := c.Load()
		require.GreaterOrEqual(t, now, last)
		last = now
	}
	wg.Wait()
	assert.Equal(t, uint32(1000), c.Load())
}

func TestSinceWraps(t *testing.T) {
	var c Counter
	c.n.Store(^uint32(0) - 1)
	start := c.Load()
	c.Inc()
	c.Inc()
	c.Inc()
	assert.Equal(t, uint32(3), c.Since(start))
}

func TestResources(t *testing.T) {
	h := resource.Handler{Symbol: "SysTick_Handler", Addr: 0x08000401}
	set, err := Resources(Config{CoreClock: 16_000_000, Rate: 1000, Priority: 0x40, Handler: h})
	require.NoError(t, err)

	decls := resource.Flatten(set)
	require.Len(t, decls, 4)
	rvr := decls[1].Claim.(resource.SharedWrite).Mask
	assert.Equal(t, uint64(15999), rvr.Set)
	assert.Equal(t, uint64(0x00ffffff), rvr.Clear)
	pri := decls[2].Claim.(resource.SharedWrite).Mask
	assert.Equal(t, uint64(0x40000000), pri.Set)
	assert.Equal(t, resource.Bind(-1, h), decls[3].Claim)
}

func TestResourcesErrors(t *testing.T) {
	_, err := Resources(Config{CoreClock: 1000, Rate: 0})
	assert.ErrorIs(t, err, ErrRate)

	// 2^24 ticks per period does not fit RELOAD.
	_, err = Resources(Config{CoreClock: 1 << 25, Rate: 1})
	assert.Error(t, err)
}
