// Package recovery keeps user input alive across failed operations. Each
// logical operation preserves what the user typed under an opaque operation
// id; a retried or manually resumed operation restores it instead of losing
// it. This is pure bookkeeping with no network or crypto side effects.
package recovery

import (
	"log/slog"
	"maps"
	"sync"
	"time"
)

// DefaultWindow is the inactivity age after which preserved entries are
// garbage-collected regardless of outcome.
const DefaultWindow = time.Hour

// Entry holds preserved input for one logical operation.
type Entry struct {
	PreservedData map[string]any
	RetryCount    int
	LastAttemptAt time.Time
}

// Manager is the keyed store of preserved user input. Construct with
// NewManager; call Close to stop the periodic garbage collection.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*Entry
	window  time.Duration

	now    func() time.Time
	logger *slog.Logger
	stop   chan struct{}
	once   sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithWindow overrides the garbage-collection inactivity window.
func WithWindow(window time.Duration) Option {
	return func(m *Manager) { m.window = window }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager and starts its periodic garbage collection.
// A non-positive gcInterval disables the background loop; Cleanup can still
// be called directly.
func NewManager(gcInterval time.Duration, opts ...Option) *Manager {
	m := &Manager{
		entries: make(map[string]*Entry),
		window:  DefaultWindow,
		now:     time.Now,
		logger:  slog.Default().With("component", "recovery"),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if gcInterval > 0 {
		go m.gcLoop(gcInterval)
	}
	return m
}

// Preserve stores or overwrites the preserved input for an operation. The
// data map is copied so later caller mutations cannot corrupt the entry.
func (m *Manager) Preserve(operationID string, data map[string]any) {
	if operationID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[operationID] = &Entry{
		PreservedData: maps.Clone(data),
		LastAttemptAt: m.now(),
	}
}

// Restore returns a copy of the preserved input, or absent when nothing is
// preserved for the operation.
func (m *Manager) Restore(operationID string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[operationID]
	if !ok {
		return nil, false
	}
	return maps.Clone(e.PreservedData), true
}

// RetryCount returns the recorded attempt count for an operation.
func (m *Manager) RetryCount(operationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[operationID]; ok {
		return e.RetryCount
	}
	return 0
}

// UpdateRetryCount increments the stored counter and refreshes the entry's
// last-attempt timestamp, keeping it out of the garbage collector's reach
// while the operation is still being retried.
func (m *Manager) UpdateRetryCount(operationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[operationID]
	if !ok {
		return
	}
	e.RetryCount++
	e.LastAttemptAt = m.now()
}

// Clear deletes the preserved entry, typically on operation success.
func (m *Manager) Clear(operationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, operationID)
}

// Cleanup deletes all entries whose last attempt is older than the
// inactivity window and returns the count removed. It never fails; callers
// invoke it periodically.
func (m *Manager) Cleanup() int {
	cutoff := m.now().Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.entries {
		if e.LastAttemptAt.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of preserved entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the background garbage collection. Safe to call repeatedly.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Manager) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := m.Cleanup(); removed > 0 {
				m.logger.Debug("recovery GC removed stale entries", "removed", removed)
			}
		case <-m.stop:
			return
		}
	}
}
