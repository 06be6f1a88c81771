// Package keyring holds the per-session symmetric keys used to seal state
// envelopes. Keys live only in process memory for the life of the session
// and are never written to durable storage.
package keyring

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"

	"github.com/polargamesbr/rpg-sub006/internal/engine/cipher"
	"github.com/polargamesbr/rpg-sub006/internal/engine/token"
	apperrors "github.com/polargamesbr/rpg-sub006/internal/errors"
)

// ErrKeyNotFound indicates no key was ever generated for a session UID.
// Callers must treat this as "cannot decrypt", not as a recoverable state.
var ErrKeyNotFound = apperrors.New(apperrors.CodeKeyNotFound, "no key generated for session")

// SessionKey pairs a session's symmetric key with its opaque token.
type SessionKey struct {
	Key   []byte
	Token string
}

// Manager issues and stores session keys. Safe for concurrent use: different
// players exchange keys for independent sessions simultaneously.
type Manager struct {
	signer *token.Signer

	mu   sync.RWMutex
	keys map[string]SessionKey
}

// NewManager builds a key manager that mints tokens with signer.
func NewManager(signer *token.Signer) (*Manager, error) {
	if signer == nil {
		return nil, fmt.Errorf("token signer is required")
	}
	return &Manager{
		signer: signer,
		keys:   make(map[string]SessionKey),
	}, nil
}

// Generate returns the session key for sessionUID, creating a fresh random
// key and token on the first call. Repeat calls return the same key until
// Remove — the key is never re-rolled mid-session.
func (m *Manager) Generate(sessionUID string) (SessionKey, error) {
	sessionUID = strings.TrimSpace(sessionUID)
	if sessionUID == "" {
		return SessionKey{}, fmt.Errorf("session uid is required")
	}

	m.mu.RLock()
	existing, ok := m.keys[sessionUID]
	m.mu.RUnlock()
	if ok {
		return existing, nil
	}

	key := make([]byte, cipher.KeySize)
	if _, err := rand.Read(key); err != nil {
		return SessionKey{}, fmt.Errorf("generate session key: %w", err)
	}
	minted, err := m.signer.Mint(sessionUID)
	if err != nil {
		return SessionKey{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have won the race between the read and this write.
	if existing, ok := m.keys[sessionUID]; ok {
		return existing, nil
	}
	created := SessionKey{Key: key, Token: minted}
	m.keys[sessionUID] = created
	return created, nil
}

// Get returns the key for sessionUID or ErrKeyNotFound.
func (m *Manager) Get(sessionUID string) (SessionKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[sessionUID]
	if !ok {
		return SessionKey{}, ErrKeyNotFound
	}
	return key, nil
}

// Remove discards the key for sessionUID. Called on session teardown.
func (m *Manager) Remove(sessionUID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, sessionUID)
}
