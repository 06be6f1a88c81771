// Package cipher seals combat state payloads into the wire envelope.
//
// Encryption here is an obfuscation layer for state in transit, not the
// security boundary: a correctly re-encrypted but semantically invalid state
// is still rejected by validation downstream. The envelope uses AES-256-GCM
// with a fresh nonce per encryption; the GCM authentication tag travels in
// the envelope's tag field.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	apperrors "github.com/polargamesbr/rpg-sub006/internal/errors"
)

// KeySize is the required symmetric key length in bytes (AES-256).
const KeySize = 32

const tagSize = 16

// ErrDecryptFailed is returned for every decryption failure. The cause is
// deliberately not distinguished so clients cannot use the engine as a
// padding or tag oracle.
var ErrDecryptFailed = apperrors.New(apperrors.CodeDecryptFailed, "payload could not be decrypted")

// Envelope is the wire wrapper around an encrypted JSON payload.
type Envelope struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
	Tag       string `json:"tag"`
}

// Encrypt seals plaintext under key and returns the base64 envelope.
// The nonce is random per call and must never repeat for one key.
func Encrypt(key, plaintext []byte) (Envelope, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return Envelope{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Envelope{}, fmt.Errorf("read nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	// Seal appends the authentication tag; split it into the envelope field.
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return Envelope{
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
		IV:        base64.StdEncoding.EncodeToString(nonce),
		Tag:       base64.StdEncoding.EncodeToString(tag),
	}, nil
}

// Decrypt opens an envelope under key. Any failure yields ErrDecryptFailed
// with no partial output.
func Decrypt(key []byte, envelope Envelope) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Encrypted)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	nonce, err := base64.StdEncoding.DecodeString(envelope.IV)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	tag, err := base64.StdEncoding.DecodeString(envelope.Tag)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	if len(nonce) != aead.NonceSize() || len(tag) != tagSize {
		return nil, ErrDecryptFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

func newAEAD(key []byte) (stdcipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}
