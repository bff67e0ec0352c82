// Package vault handles symmetric encryption of the user's API credential.
// A per-session key is generated lazily, stored once in the session-scoped
// keystore, and reused for the session's lifetime; every encryption uses a
// fresh random nonce. Format validation runs before any key material is
// touched, so malformed input never reaches a cryptographic operation.
//
// Known weakness, kept deliberately: the symmetric key lives in the same
// storage tier as the ciphertext it protects, so a compromise of that tier
// yields both. Redesigning the key placement is out of scope here.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
)

const (
	// keyStorageName is the well-known keystore entry holding the
	// session's symmetric key.
	keyStorageName = "evalforge_session_key"

	// SensitivePrefix is the naming convention for keystore entries that
	// hold sensitive data; WipeSensitiveData removes everything under it.
	SensitivePrefix = "evalforge_secure_"

	keySize = 32 // AES-256

	// minSecretLength is the shortest credential accepted by format
	// validation.
	minSecretLength = 20
)

// secretPattern is the recognized credential shape: an sk- family prefix
// followed by URL-safe key characters.
var secretPattern = regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`)

// Keystore is the storage collaborator the vault persists key material
// through. Implementations are session-scoped; see the session package.
type Keystore interface {
	Get(name string) (string, bool)
	Set(name, value string) error
	Delete(name string)
	Names() []string
}

// Vault encrypts and decrypts credentials with the session key.
type Vault struct {
	store  Keystore
	logger *slog.Logger
}

// New creates a vault over the given keystore.
func New(store Keystore) *Vault {
	return &Vault{
		store:  store,
		logger: slog.Default().With("component", "vault"),
	}
}

// ValidateFormat checks a credential's shape: minimum length, allowed
// character set, recognized prefix. It runs independently of encryption and
// never touches key material.
func ValidateFormat(secret string) error {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return fmt.Errorf("%w: credential is empty", llmerrors.ErrCredentialFormat)
	}
	if len(trimmed) < minSecretLength {
		return fmt.Errorf("%w: credential shorter than %d characters", llmerrors.ErrCredentialFormat, minSecretLength)
	}
	if !secretPattern.MatchString(trimmed) {
		return fmt.Errorf("%w: credential does not match the expected key pattern", llmerrors.ErrCredentialFormat)
	}
	return nil
}

// Encrypt validates the secret's shape, then seals it with the session key
// under a fresh random nonce. The result is base64(nonce‖ciphertext). Any
// cryptographic failure surfaces as a credential-encrypt error; plaintext is
// never passed through silently.
func (v *Vault) Encrypt(secret string) (string, error) {
	if err := ValidateFormat(secret); err != nil {
		return "", err
	}

	gcm, err := v.sessionCipher()
	if err != nil {
		return "", fmt.Errorf("%w: %w", llmerrors.ErrCredentialEncrypt, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: %w", llmerrors.ErrCredentialEncrypt, err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(strings.TrimSpace(secret)), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt splits the nonce from the ciphertext using the known nonce length
// and opens it with the session key. Any failure, whether an undecodable
// blob, a missing key, or tampered ciphertext, surfaces as a
// credential-decrypt error.
func (v *Vault) Decrypt(blob string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: undecodable blob", llmerrors.ErrCredentialDecrypt)
	}

	gcm, err := v.sessionCipher()
	if err != nil {
		return "", fmt.Errorf("%w: %w", llmerrors.ErrCredentialDecrypt, err)
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize+1 {
		return "", fmt.Errorf("%w: blob too short", llmerrors.ErrCredentialDecrypt)
	}

	plaintext, err := gcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", llmerrors.ErrCredentialDecrypt, err)
	}
	return string(plaintext), nil
}

// WipeSensitiveData deletes the session key and every keystore entry under
// the sensitive naming convention. It must not fail even when the store is
// misbehaving; cleanup logs and continues.
func (v *Vault) WipeSensitiveData() {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("keystore panicked during sensitive-data wipe", "panic", r)
		}
	}()

	v.store.Delete(keyStorageName)
	for _, name := range v.store.Names() {
		if strings.HasPrefix(name, SensitivePrefix) {
			v.store.Delete(name)
		}
	}
}

// sessionCipher returns the AEAD for the session key, generating and
// persisting the key on first use.
func (v *Vault) sessionCipher() (cipher.AEAD, error) {
	var key []byte

	if encoded, ok := v.store.Get(keyStorageName); ok {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(decoded) != keySize {
			return nil, fmt.Errorf("stored session key is corrupt")
		}
		key = decoded
	} else {
		key = make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		if err := v.store.Set(keyStorageName, base64.StdEncoding.EncodeToString(key)); err != nil {
			return nil, fmt.Errorf("failed to persist session key: %w", err)
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
