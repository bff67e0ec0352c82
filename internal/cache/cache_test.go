package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time              { return f.t }
func (f *fakeClock) advance(d time.Duration)     { f.t = f.t.Add(d) }
func newFakeClock() *fakeClock                   { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }
func newTestCache(clock *fakeClock) *Cache[string] {
	return New(0, WithClock[string](clock.now), WithMaxEntries[string](3), WithDefaultTTL[string](time.Minute))
}

func TestCache_SetThenGet(t *testing.T) {
	c := newTestCache(newFakeClock())
	defer c.Close()

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestCache_ExpiresByWriteTime(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	defer c.Close()

	c.SetTTL("k", "v", 10*time.Second)

	clock.advance(10 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry at exactly ttl is still present")

	clock.advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry is deleted on read")
}

func TestCache_ReadDoesNotExtendTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	defer c.Close()

	c.SetTTL("k", "v", 10*time.Second)

	// Keep reading right up to expiry: access refreshes eviction priority
	// but must not slide the expiry forward.
	for i := 0; i < 9; i++ {
		clock.advance(time.Second)
		_, ok := c.Get("k")
		require.True(t, ok)
	}

	clock.advance(2 * time.Second)
	_, ok := c.Get("k")
	assert.False(t, ok, "a frequently-read entry still expires on schedule")
}

func TestCache_EvictsLeastRecentlyAccessed(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock) // capacity 3
	defer c.Close()

	c.Set("a", "1")
	clock.advance(time.Second)
	c.Set("b", "2")
	clock.advance(time.Second)
	c.Set("c", "3")

	// Access "a" so its access time diverges from its write time: "b" is
	// now the least recently accessed despite being written after "a".
	clock.advance(time.Second)
	_, ok := c.Get("a")
	require.True(t, ok)

	clock.advance(time.Second)
	c.Set("d", "4")

	_, ok = c.Get("b")
	assert.False(t, ok, "eviction follows access order, not write order")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %s must survive", key)
	}
}

func TestCache_EvictsEmptyStringKey(t *testing.T) {
	clock := newFakeClock()
	c := New(0, WithClock[string](clock.now), WithMaxEntries[string](2))
	defer c.Close()

	// "" is a real key; a whitespace-only search query normalizes to it.
	c.Set("", "blank")
	clock.advance(time.Second)
	c.Set("b", "2")
	clock.advance(time.Second)
	c.Set("c", "3")

	assert.Equal(t, 2, c.Len(), "capacity bound holds when the oldest key is empty")
	_, ok := c.Get("")
	assert.False(t, ok, "the empty-string entry is evicted like any other")
	for _, key := range []string{"b", "c"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %q must survive", key)
	}
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	defer c.Close()

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Set("a", "updated") // existing key, no eviction at capacity

	assert.Equal(t, 3, c.Len())
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "updated", got)
}

func TestCache_CleanupReturnsRemovedCount(t *testing.T) {
	clock := newFakeClock()
	c := New(0, WithClock[string](clock.now), WithMaxEntries[string](10))
	defer c.Close()

	c.SetTTL("short1", "v", time.Second)
	c.SetTTL("short2", "v", time.Second)
	c.SetTTL("long", "v", time.Hour)

	clock.advance(2 * time.Second)
	assert.Equal(t, 2, c.Cleanup())
	assert.Equal(t, 1, c.Len())
}

func TestResponseKey_ParamOrderIrrelevant(t *testing.T) {
	a := ResponseKey("models", map[string]string{"provider": "openai", "limit": "10"})
	b := ResponseKey("models", map[string]string{"limit": "10", "provider": "openai"})
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, ResponseKey("models", map[string]string{"limit": "20", "provider": "openai"}))
	assert.Equal(t, "models", ResponseKey("models", nil))
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  GPT-4o  Mini ", "gpt-4o mini"},
		{"gpt-4o\tmini", "gpt-4o mini"},
		{"GPT-4O MINI", "gpt-4o mini"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuery(tt.in))
	}
}

func TestSearchCache_EquivalentQueriesShareEntry(t *testing.T) {
	sc := NewSearchCache[[]string]()
	defer sc.Close()

	sc.Set("  Fast   Models ", []string{"gpt-4o-mini"})
	got, ok := sc.Get("fast models")
	require.True(t, ok)
	assert.Equal(t, []string{"gpt-4o-mini"}, got)
}

func TestResponseCache_RoundTrip(t *testing.T) {
	rc := NewResponseCache[int]()
	defer rc.Close()

	params := map[string]string{"model": "gpt-4o"}
	rc.Set("pricing", params, 42, time.Minute)

	got, ok := rc.Get("pricing", map[string]string{"model": "gpt-4o"})
	require.True(t, ok)
	assert.Equal(t, 42, got)

	rc.Invalidate("pricing", params)
	_, ok = rc.Get("pricing", params)
	assert.False(t, ok)
}
