package session

import (
	"time"

	"github.com/evalforge/evalforge/internal/domain"
)

// TTL is the idle lifetime of a session. Every save slides the expiry
// forward: a session expires one hour after its last save, not one hour
// after creation.
const TTL = time.Hour

// Record is the single live session. Exactly one record exists per session
// scope at a time; it is created on first use, replaced wholesale on reset,
// and deleted on explicit clear or expiry.
type Record struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	// Version increases on every save. Writes are last-writer-wins; the
	// counter exists so a future cross-scope consistency check can reject
	// stale overwrites without a format change.
	Version int `json:"version"`

	// EncryptedCredential is the vault-sealed API key, empty when no
	// credential is stored. The raw secret never appears in a Record.
	EncryptedCredential string `json:"encryptedCredential,omitempty"`

	// History is append-only; clearing truncates, never mutates entries.
	History []domain.TestRun `json:"history"`

	// CurrentTest preserves in-progress user input.
	CurrentTest domain.TestState `json:"currentTest"`

	// Settings are the session-scoped preferences.
	Settings domain.UserSettings `json:"settings"`
}

// Expired reports whether the record's expiry has passed at the given time.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
