package keyring

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/polargamesbr/rpg-sub006/internal/engine/cipher"
	"github.com/polargamesbr/rpg-sub006/internal/engine/token"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	signer, err := token.NewSigner([]byte("test-signing-key"), 0)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	manager, err := NewManager(signer)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager
}

func TestGenerateIsIdempotentPerSession(t *testing.T) {
	manager := newTestManager(t)

	first, err := manager.Generate("session-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(first.Key) != cipher.KeySize {
		t.Fatalf("expected %d-byte key, got %d", cipher.KeySize, len(first.Key))
	}
	if first.Token == "" {
		t.Fatal("expected non-empty token")
	}

	second, err := manager.Generate("session-1")
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}
	if !bytes.Equal(first.Key, second.Key) || first.Token != second.Token {
		t.Fatal("expected repeat generate to return the same key and token")
	}
}

func TestGenerateDistinctPerSession(t *testing.T) {
	manager := newTestManager(t)

	one, err := manager.Generate("session-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	two, err := manager.Generate("session-2")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if bytes.Equal(one.Key, two.Key) {
		t.Fatal("expected distinct keys per session")
	}
}

func TestGetUnknownSession(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.Get("session-missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestRemoveDiscardsKey(t *testing.T) {
	manager := newTestManager(t)

	if _, err := manager.Generate("session-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	manager.Remove("session-1")

	if _, err := manager.Get("session-1"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after remove, got %v", err)
	}
}

func TestGenerateConcurrentSameSession(t *testing.T) {
	manager := newTestManager(t)

	const workers = 16
	results := make([]SessionKey, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := manager.Generate("session-race")
			if err != nil {
				t.Errorf("generate: %v", err)
				return
			}
			results[i] = key
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if !bytes.Equal(results[0].Key, results[i].Key) {
			t.Fatal("concurrent generates must agree on one key")
		}
	}
}

func TestGenerateRequiresSessionUID(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.Generate("  "); err == nil {
		t.Fatal("expected error for blank session uid")
	}
}
