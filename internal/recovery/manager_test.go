package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestManager() (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return NewManager(0, WithClock(clock.now)), clock
}

func TestManager_PreserveRestore(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	m.Preserve("op-1", map[string]any{"instructions": "be terse", "model": "gpt-4o-mini"})

	data, ok := m.Restore("op-1")
	require.True(t, ok)
	assert.Equal(t, "be terse", data["instructions"])
	assert.Equal(t, "gpt-4o-mini", data["model"])

	_, ok = m.Restore("missing")
	assert.False(t, ok)
}

func TestManager_RestoreReturnsCopy(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	m.Preserve("op-1", map[string]any{"prompt": "original"})

	data, _ := m.Restore("op-1")
	data["prompt"] = "mutated"

	again, _ := m.Restore("op-1")
	assert.Equal(t, "original", again["prompt"], "caller mutations must not corrupt preserved data")
}

func TestManager_PreserveOverwrites(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	m.Preserve("op-1", map[string]any{"prompt": "first"})
	m.UpdateRetryCount("op-1")
	m.Preserve("op-1", map[string]any{"prompt": "second"})

	data, _ := m.Restore("op-1")
	assert.Equal(t, "second", data["prompt"])
	assert.Zero(t, m.RetryCount("op-1"), "re-preserving starts a fresh logical operation")
}

func TestManager_UpdateRetryCount(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	m.Preserve("op-1", nil)
	m.UpdateRetryCount("op-1")
	m.UpdateRetryCount("op-1")
	assert.Equal(t, 2, m.RetryCount("op-1"))

	m.UpdateRetryCount("unknown") // no-op, never creates an entry
	assert.Equal(t, 1, m.Len())
}

func TestManager_Clear(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	m.Preserve("op-1", map[string]any{"x": 1})
	m.Clear("op-1")
	_, ok := m.Restore("op-1")
	assert.False(t, ok)
}

func TestManager_CleanupDropsStaleEntries(t *testing.T) {
	m, clock := newTestManager()
	defer m.Close()

	m.Preserve("stale", map[string]any{"x": 1})

	clock.advance(30 * time.Minute)
	m.Preserve("fresh", map[string]any{"y": 2})

	clock.advance(31 * time.Minute) // "stale" is now 61m old, "fresh" 31m

	assert.Equal(t, 1, m.Cleanup())
	_, ok := m.Restore("stale")
	assert.False(t, ok)
	_, ok = m.Restore("fresh")
	assert.True(t, ok)
}

func TestManager_RetryRefreshesGCWindow(t *testing.T) {
	m, clock := newTestManager()
	defer m.Close()

	m.Preserve("op-1", map[string]any{"x": 1})

	clock.advance(50 * time.Minute)
	m.UpdateRetryCount("op-1") // activity slides the GC window

	clock.advance(30 * time.Minute)
	assert.Zero(t, m.Cleanup(), "a recently retried entry must survive GC")
}
