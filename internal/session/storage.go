// Package session manages the session lifecycle: one encrypted, time-boxed
// record per session holding the credential, test history, and settings.
// Persistence goes through an opaque Storage collaborator; expired or
// undecodable records are deleted, never repaired.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage is the opaque key-value collaborator the session store persists
// through. It doubles as the vault's keystore so key material and record
// live in the same session-scoped tier. Implementations need not be durable
// across restarts; the in-memory implementation mirrors session-scoped
// browser storage.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string)
	Names() []string
}

// MemoryStorage is a session-scoped in-memory Storage.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

// Get returns the value for key.
func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores a value.
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Delete removes a key.
func (s *MemoryStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Names returns all present keys.
func (s *MemoryStorage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data))
	for k := range s.data {
		names = append(names, k)
	}
	return names
}

// FileStorage persists the key-value map as one JSON file, for CLI sessions
// that should survive a process restart. Writes are last-writer-wins with no
// concurrency check, matching the single-writer session model.
type FileStorage struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// NewFileStorage loads (or initializes) storage at path.
func NewFileStorage(path string) (*FileStorage, error) {
	s := &FileStorage{path: path, data: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session storage: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// Undecodable storage is discarded, never repaired.
		s.data = make(map[string]string)
	}
	return s, nil
}

// Get returns the value for key.
func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores a value and persists the file.
func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.persistLocked()
}

// Delete removes a key and persists the file. Persistence failures during
// deletion are ignored; the in-memory view is authoritative for reads.
func (s *FileStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	_ = s.persistLocked()
}

// Names returns all present keys.
func (s *FileStorage) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.data))
	for k := range s.data {
		names = append(names, k)
	}
	return names
}

func (s *FileStorage) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}
