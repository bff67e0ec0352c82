package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evalforge/evalforge/internal/domain"
	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
	"github.com/evalforge/evalforge/internal/vault"
)

// storageKey is the single well-known key the session record lives under.
// It sits inside the vault's sensitive naming convention so a sensitive-data
// wipe removes the record along with the key material.
const storageKey = vault.SensitivePrefix + "session"

// Store drives the session lifecycle over an opaque Storage collaborator:
// absent → created → saved ↔ loaded → expired/cleared. Construct with
// NewStore; call Close to stop the periodic expiry check.
type Store struct {
	storage Storage
	vault   *vault.Vault

	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	onCleared func()

	stop chan struct{}
	once sync.Once
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL overrides the session idle lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a session store over storage, encrypting credentials
// with v. A positive checkInterval starts the periodic expiry check; the
// check is pure maintenance and never blocks foreground operations.
func NewStore(storage Storage, v *vault.Vault, checkInterval time.Duration, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		vault:   v,
		ttl:     TTL,
		now:     time.Now,
		logger:  slog.Default().With("component", "session"),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if checkInterval > 0 {
		go s.expiryLoop(checkInterval)
	}
	return s
}

// Create produces a fresh record with a new session id, empty history, and
// a full TTL. The record is not persisted until the first Save.
func (s *Store) Create() *Record {
	now := s.now()
	return &Record{
		SessionID: uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		History:   []domain.TestRun{},
	}
}

// Save recomputes the record's expiry to now + TTL, so every save slides the
// expiry forward, then bumps the version and writes the encoded record.
// Storage failures surface as a distinct save error, never silently.
func (s *Store) Save(record *Record) error {
	record.ExpiresAt = s.now().Add(s.ttl)
	record.Version++

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %w", llmerrors.ErrSessionSave, err)
	}
	if err := s.storage.Set(storageKey, string(encoded)); err != nil {
		return fmt.Errorf("%w: %w", llmerrors.ErrSessionSave, err)
	}
	return nil
}

// Load decodes the stored record. An expired record is deleted and reported
// absent; stale data is never handed back. An undecodable record is
// likewise deleted, never repaired.
func (s *Store) Load() (*Record, bool) {
	encoded, ok := s.storage.Get(storageKey)
	if !ok {
		return nil, false
	}

	var record Record
	if err := json.Unmarshal([]byte(encoded), &record); err != nil {
		s.logger.Warn("deleting undecodable session record", "error", err)
		s.storage.Delete(storageKey)
		return nil, false
	}

	if record.Expired(s.now()) {
		s.logger.Info("deleting expired session", "session_id", record.SessionID)
		s.storage.Delete(storageKey)
		return nil, false
	}
	return &record, true
}

// StoreCredential validates the secret's format, encrypts it, and saves the
// record. Malformed secrets are rejected before any cryptographic or
// storage operation happens.
func (s *Store) StoreCredential(secret string, record *Record) error {
	if err := vault.ValidateFormat(secret); err != nil {
		return err
	}

	blob, err := s.vault.Encrypt(secret)
	if err != nil {
		return err
	}

	record.EncryptedCredential = blob
	return s.Save(record)
}

// Credential decrypts and returns the stored secret, or an error when no
// credential is stored or decryption fails.
func (s *Store) Credential(record *Record) (string, error) {
	if record.EncryptedCredential == "" {
		return "", fmt.Errorf("%w: no credential stored", llmerrors.ErrCredentialDecrypt)
	}
	return s.vault.Decrypt(record.EncryptedCredential)
}

// AddTestToHistory appends a completed run and re-saves, sliding the TTL.
func (s *Store) AddTestToHistory(record *Record, run domain.TestRun) error {
	record.History = append(record.History, run)
	return s.Save(record)
}

// ClearTestHistory truncates the history to empty and re-saves. Individual
// entries are never mutated.
func (s *Store) ClearTestHistory(record *Record) error {
	record.History = []domain.TestRun{}
	return s.Save(record)
}

// UpdateSettings replaces the settings and re-saves, sliding the TTL.
func (s *Store) UpdateSettings(record *Record, settings domain.UserSettings) error {
	record.Settings = settings
	return s.Save(record)
}

// UpdateCurrentTest preserves in-progress user input and re-saves.
func (s *Store) UpdateCurrentTest(record *Record, state domain.TestState) error {
	record.CurrentTest = state
	return s.Save(record)
}

// IsExpired reports whether the record has passed its expiry.
func (s *Store) IsExpired(record *Record) bool {
	return record.Expired(s.now())
}

// Extend slides the expiry forward without other changes.
func (s *Store) Extend(record *Record) error {
	return s.Save(record)
}

// TimeUntilExpiration returns the remaining lifetime, or zero when already
// expired.
func (s *Store) TimeUntilExpiration(record *Record) time.Duration {
	remaining := record.ExpiresAt.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clear deletes the persisted record and wipes all sensitive key material.
func (s *Store) Clear() {
	s.storage.Delete(storageKey)
	s.vault.WipeSensitiveData()
}

// OnCleared registers the handler fired when the session disappears from
// storage underneath us, cleared elsewhere or expired by the janitor.
func (s *Store) OnCleared(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCleared = handler
}

// HandleStorageChange is called by the embedding layer when it observes an
// external write to session storage. Detection is reactive: a concurrent
// writer is signaled, never merged.
func (s *Store) HandleStorageChange(key string) {
	if key != storageKey {
		return
	}
	if _, ok := s.storage.Get(storageKey); !ok {
		s.fireCleared()
	}
}

// CheckExpiry deletes the stored record if it has expired, reporting
// whether a deletion happened. Called on the periodic interval and when the
// embedding layer regains visibility.
func (s *Store) CheckExpiry() bool {
	encoded, ok := s.storage.Get(storageKey)
	if !ok {
		return false
	}

	var record Record
	if err := json.Unmarshal([]byte(encoded), &record); err != nil {
		s.storage.Delete(storageKey)
		return true
	}
	if !record.Expired(s.now()) {
		return false
	}

	s.logger.Info("expiry check removed stale session", "session_id", record.SessionID)
	s.storage.Delete(storageKey)
	s.fireCleared()
	return true
}

// Close stops the periodic expiry check. Safe to call repeatedly.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) fireCleared() {
	s.mu.Lock()
	handler := s.onCleared
	s.mu.Unlock()
	if handler != nil {
		handler()
	}
}

func (s *Store) expiryLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CheckExpiry()
		case <-s.stop:
			return
		}
	}
}
