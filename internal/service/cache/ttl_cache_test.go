package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(ttl time.Duration) (*TTLCache[int], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTLCache[int](ttl)
	c.now = clk.now
	return c, clk
}

func TestTTLCache_Expiry(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.Set("a", 1)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clk.t = clk.t.Add(61 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestTTLCache_ZeroTTLNeverExpires(t *testing.T) {
	c, clk := newTestCache(0)
	c.Set("a", 1)
	clk.t = clk.t.Add(24 * time.Hour)
	_, ok := c.Get("a")
	assert.True(t, ok)
}

func TestTTLCache_Invalidation(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("bounds:BTC", 1)
	c.Set("bounds:ETH", 2)
	c.Set("state:BTC", 3)

	assert.Equal(t, 1, c.Delete("bounds:BTC", "missing"))
	assert.Equal(t, 1, c.DeletePrefix("bounds:"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Purge())
	assert.Zero(t, c.Len())
}

func TestTTLCache_Concurrent(t *testing.T) {
	c := NewTTLCache[int](time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("k", i)
				c.Get("k")
				if j%10 == 0 {
					c.Delete("k")
				}
			}
		}(i)
	}
	wg.Wait()
}
