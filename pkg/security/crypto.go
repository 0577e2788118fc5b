package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Decryption failure classes. Wrong key, truncation and corruption all
// surface as ErrDecrypt via errors.Is.
var (
	ErrDecrypt         = errors.New("decryption failed")
	ErrCiphertextShort = fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
)

// Engine performs AES-256-GCM encryption under a single process-wide key.
// The key is injected at construction time and every ciphertext is tagged
// with the engine's key version so a later rotation can re-wrap records
// selectively instead of assuming one eternal key.
type Engine struct {
	key       []byte
	version   string
	keyLocked bool
}

// NewEngineHex builds an Engine from a 64-hex-char (32 byte) key string.
// The key bytes are locked into RAM where the platform supports it.
func NewEngineHex(hexKey, version string) (*Engine, error) {
	b, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid key hex: %w", err)
	}
	return NewEngine(b, version)
}

// NewEngine builds an Engine from raw key bytes.
func NewEngine(key []byte, version string) (*Engine, error) {
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes (AES-256)")
	}
	if version == "" {
		version = "v1"
	}
	e := &Engine{key: append([]byte(nil), key...), version: version}
	if err := LockMemory(e.key); err == nil {
		e.keyLocked = true
	}
	return e, nil
}

// KeyVersion returns the version tag stored alongside ciphertext records.
func (e *Engine) KeyVersion() string { return e.version }

// Close unlocks the key memory. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e.keyLocked {
		_ = UnlockMemory(e.key)
		e.keyLocked = false
	}
	for i := range e.key {
		e.key[i] = 0
	}
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce and
// returns base64(nonce|ciphertext). Repeated calls with identical input
// produce different outputs; callers must not assume ciphertext stability.
func (e *Engine) Encrypt(plaintext []byte) (string, error) {
	gcm, err := e.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := gcm.Seal(nil, nonce, plaintext, nil)
	// Prepend nonce for storage
	return base64.StdEncoding.EncodeToString(append(nonce, out...)), nil
}

// Decrypt is the exact inverse of Encrypt. It expects base64(nonce|ct) and
// fails with ErrDecrypt when the input is malformed, truncated, or was not
// produced under this engine's key.
func (e *Engine) Decrypt(ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecrypt, err)
	}
	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}
	ns := gcm.NonceSize()
	if len(data) < ns {
		return nil, ErrCiphertextShort
	}
	pt, err := gcm.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return pt, nil
}

func (e *Engine) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
