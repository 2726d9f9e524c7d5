package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func cloneSlice(s []string) []string { return append([]string(nil), s...) }

func TestTTLExpiryRealTime(t *testing.T) {
	c := New[string]()
	c.SetWithTTL("k", "v", 100*time.Millisecond)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	time.Sleep(120 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.NotContains(t, c.Stats().Keys, "k")
	assert.Equal(t, 0, c.Stats().Size)
}

func TestDefaultTTLWithClock(t *testing.T) {
	clk := newClock()
	c := New(WithClock[int](clk.Now))
	c.Set("k", 1)

	clk.Advance(DefaultTTL)
	v, ok := c.Get("k")
	require.True(t, ok, "entry is live at exactly its expiry instant")
	assert.Equal(t, 1, v)

	clk.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestWithTTLOverridesDefault(t *testing.T) {
	clk := newClock()
	c := New(WithClock[int](clk.Now), WithTTL[int](time.Minute))
	c.Set("k", 1)
	c.SetWithTTL("long", 2, time.Hour)

	clk.Advance(2 * time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
	_, ok = c.Get("long")
	assert.True(t, ok)
}

func TestValuesAreCopiedOnSetAndGet(t *testing.T) {
	c := New(WithClone(cloneSlice))
	in := []string{"a", "b"}
	c.Set("k", in)

	in[0] = "mutated"
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	got[1] = "mutated"
	again, _ := c.Get("k")
	assert.Equal(t, []string{"a", "b"}, again)
}

func TestStaleSurvivesEviction(t *testing.T) {
	clk := newClock()
	c := New(WithClock[string](clk.Now))

	_, ok := c.Stale("k")
	assert.False(t, ok)

	c.SetWithTTL("k", "old", time.Second)
	clk.Advance(2 * time.Second)
	_, ok = c.Get("k")
	require.False(t, ok)

	v, ok := c.Stale("k")
	require.True(t, ok)
	assert.Equal(t, "old", v)

	c.Set("k", "new")
	v, _ = c.Stale("k")
	assert.Equal(t, "new", v)

	c.Clear("k")
	_, ok = c.Stale("k")
	assert.False(t, ok)
}

func TestStaleWithoutPriorRead(t *testing.T) {
	clk := newClock()
	c := New(WithClock[string](clk.Now))
	c.SetWithTTL("k", "v", time.Second)
	clk.Advance(time.Hour)

	v, ok := c.Stale("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestClearAllAndStats(t *testing.T) {
	c := New[int]()
	c.Set("b", 2)
	c.Set("a", 1)

	st := c.Stats()
	assert.Equal(t, 2, st.Size)
	assert.Equal(t, []string{"a", "b"}, st.Keys)

	c.Clear("a")
	assert.Equal(t, []string{"b"}, c.Stats().Keys)

	c.ClearAll()
	assert.Equal(t, 0, c.Stats().Size)
	_, ok := c.Stale("b")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("k", i)
				c.Get("k")
				c.Stale("k")
				c.Stats()
			}
		}(i)
	}
	wg.Wait()
	_, ok := c.Get("k")
	assert.True(t, ok)
}
