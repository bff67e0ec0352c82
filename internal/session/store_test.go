package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/domain"
	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
	"github.com/evalforge/evalforge/internal/vault"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingStorage struct {
	MemoryStorage
	failSet bool
}

func (f *failingStorage) Set(name, value string) error {
	if f.failSet {
		return assert.AnError
	}
	return f.MemoryStorage.Set(name, value)
}

func newTestStore(t *testing.T) (*Store, *MemoryStorage, *fakeClock) {
	t.Helper()
	storage := NewMemoryStorage()
	clock := newFakeClock()
	v := vault.New(storage)
	store := NewStore(storage, v, 0, WithClock(clock.Now))
	t.Cleanup(store.Close)
	return store, storage, clock
}

const testSecret = "sk-test-abcdefghijklmnop1234"

func TestStoreCreate(t *testing.T) {
	store, _, clock := newTestStore(t)

	record := store.Create()

	assert.NotEmpty(t, record.SessionID)
	assert.Equal(t, clock.Now(), record.CreatedAt)
	assert.Equal(t, clock.Now().Add(TTL), record.ExpiresAt)
	assert.NotNil(t, record.History)
	assert.Empty(t, record.History)

	// Creation alone persists nothing.
	_, ok := store.Load()
	assert.False(t, ok)
}

func TestStoreSaveAndLoad(t *testing.T) {
	store, _, _ := newTestStore(t)

	record := store.Create()
	record.Settings = domain.UserSettings{DefaultProvider: "openai", DefaultModel: "gpt-4o"}
	require.NoError(t, store.Save(record))

	loaded, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, record.SessionID, loaded.SessionID)
	assert.Equal(t, "gpt-4o", loaded.Settings.DefaultModel)
}

func TestStoreSaveSlidesExpiry(t *testing.T) {
	store, _, clock := newTestStore(t)

	record := store.Create()
	require.NoError(t, store.Save(record))
	first := record.ExpiresAt

	clock.Advance(30 * time.Minute)
	require.NoError(t, store.Save(record))

	assert.Equal(t, first.Add(30*time.Minute), record.ExpiresAt,
		"every save should reset expiry to now + TTL")
}

func TestStoreSaveIncrementsVersion(t *testing.T) {
	store, _, _ := newTestStore(t)

	record := store.Create()
	require.NoError(t, store.Save(record))
	v1 := record.Version
	require.NoError(t, store.Save(record))

	assert.Equal(t, v1+1, record.Version)
}

func TestStoreLoadExpiredDeletes(t *testing.T) {
	store, storage, clock := newTestStore(t)

	record := store.Create()
	require.NoError(t, store.Save(record))

	clock.Advance(TTL + time.Second)

	_, ok := store.Load()
	assert.False(t, ok)

	_, present := storage.Get(storageKey)
	assert.False(t, present, "expired record should be deleted, not kept")
}

func TestStoreLoadAtExactExpiryStillPresent(t *testing.T) {
	store, _, clock := newTestStore(t)

	record := store.Create()
	require.NoError(t, store.Save(record))

	clock.Advance(TTL)

	_, ok := store.Load()
	assert.True(t, ok, "record is expired only strictly after its expiry instant")
}

func TestStoreLoadUndecodableDeletes(t *testing.T) {
	store, storage, _ := newTestStore(t)

	require.NoError(t, storage.Set(storageKey, "{not json"))

	_, ok := store.Load()
	assert.False(t, ok)

	_, present := storage.Get(storageKey)
	assert.False(t, present)
}

func TestStoreSaveFailureReported(t *testing.T) {
	storage := &failingStorage{failSet: true}
	clock := newFakeClock()
	v := vault.New(NewMemoryStorage())
	store := NewStore(storage, v, 0, WithClock(clock.Now))
	defer store.Close()

	err := store.Save(store.Create())

	require.Error(t, err)
	assert.ErrorIs(t, err, llmerrors.ErrSessionSave)
}

func TestStoreCredentialRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)

	record := store.Create()
	require.NoError(t, store.StoreCredential(testSecret, record))
	assert.NotEmpty(t, record.EncryptedCredential)
	assert.NotContains(t, record.EncryptedCredential, testSecret)

	got, err := store.Credential(record)
	require.NoError(t, err)
	assert.Equal(t, testSecret, got)
}

func TestStoreCredentialRejectsMalformed(t *testing.T) {
	store, _, _ := newTestStore(t)

	record := store.Create()
	err := store.StoreCredential("not-a-key", record)

	require.Error(t, err)
	assert.ErrorIs(t, err, llmerrors.ErrCredentialFormat)
	assert.Empty(t, record.EncryptedCredential)
}

func TestStoreCredentialAbsent(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, err := store.Credential(store.Create())

	require.Error(t, err)
	assert.ErrorIs(t, err, llmerrors.ErrCredentialDecrypt)
}

func TestStoreHistoryAppendAndClear(t *testing.T) {
	store, _, _ := newTestStore(t)

	record := store.Create()
	run := domain.TestRun{ID: "run-1", ModelProvider: "openai", Model: "gpt-4o"}
	require.NoError(t, store.AddTestToHistory(record, run))
	require.NoError(t, store.AddTestToHistory(record, domain.TestRun{ID: "run-2"}))

	loaded, ok := store.Load()
	require.True(t, ok)
	require.Len(t, loaded.History, 2)
	assert.Equal(t, "run-1", loaded.History[0].ID)

	require.NoError(t, store.ClearTestHistory(record))
	loaded, ok = store.Load()
	require.True(t, ok)
	assert.Empty(t, loaded.History)
}

func TestStoreUpdateSettingsSlidesExpiry(t *testing.T) {
	store, _, clock := newTestStore(t)

	record := store.Create()
	require.NoError(t, store.Save(record))

	clock.Advance(45 * time.Minute)
	require.NoError(t, store.UpdateSettings(record, domain.UserSettings{DefaultModel: "o3-mini"}))

	assert.Equal(t, clock.Now().Add(TTL), record.ExpiresAt)
}

func TestStoreExpiryHelpers(t *testing.T) {
	store, _, clock := newTestStore(t)

	record := store.Create()
	require.NoError(t, store.Save(record))

	assert.False(t, store.IsExpired(record))
	assert.Equal(t, TTL, store.TimeUntilExpiration(record))

	clock.Advance(40 * time.Minute)
	assert.Equal(t, 20*time.Minute, store.TimeUntilExpiration(record))

	clock.Advance(TTL)
	assert.True(t, store.IsExpired(record))
	assert.Equal(t, time.Duration(0), store.TimeUntilExpiration(record))
}

func TestStoreExtend(t *testing.T) {
	store, _, clock := newTestStore(t)

	record := store.Create()
	require.NoError(t, store.Save(record))

	clock.Advance(50 * time.Minute)
	require.NoError(t, store.Extend(record))

	assert.Equal(t, TTL, store.TimeUntilExpiration(record))
}

func TestStoreClearWipesSensitiveData(t *testing.T) {
	store, storage, _ := newTestStore(t)

	record := store.Create()
	require.NoError(t, store.StoreCredential(testSecret, record))

	store.Clear()

	_, ok := store.Load()
	assert.False(t, ok)
	for _, name := range storage.Names() {
		assert.NotContains(t, name, vault.SensitivePrefix)
	}
}

func TestStoreCheckExpiry(t *testing.T) {
	store, _, clock := newTestStore(t)

	var cleared bool
	store.OnCleared(func() { cleared = true })

	record := store.Create()
	require.NoError(t, store.Save(record))

	assert.False(t, store.CheckExpiry(), "fresh session should survive the check")
	assert.False(t, cleared)

	clock.Advance(TTL + time.Minute)
	assert.True(t, store.CheckExpiry())
	assert.True(t, cleared, "expiry removal should fire the cleared handler")

	assert.False(t, store.CheckExpiry(), "nothing left to remove")
}

func TestStoreHandleStorageChange(t *testing.T) {
	store, storage, _ := newTestStore(t)

	var cleared int
	store.OnCleared(func() { cleared++ })

	record := store.Create()
	require.NoError(t, store.Save(record))

	// A change with the record still present is not a clear.
	store.HandleStorageChange(storageKey)
	assert.Zero(t, cleared)

	// Unrelated keys are ignored.
	storage.Delete(storageKey)
	store.HandleStorageChange("some_other_key")
	assert.Zero(t, cleared)

	store.HandleStorageChange(storageKey)
	assert.Equal(t, 1, cleared)
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := t.TempDir() + "/session.json"

	fs, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set("alpha", "1"))
	require.NoError(t, fs.Set("beta", "2"))
	fs.Delete("alpha")

	reopened, err := NewFileStorage(path)
	require.NoError(t, err)

	_, ok := reopened.Get("alpha")
	assert.False(t, ok)
	v, ok := reopened.Get("beta")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, []string{"beta"}, reopened.Names())
}
