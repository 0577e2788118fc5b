package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"

	"cipherrelay/pkg/models"
)

// Step labels shown by visualization clients. Order is significant.
const (
	StepNormalize = "Normalize to UTF-8 bytes"
	StepGenIV     = "Generate initialization vector"
	StepEncrypt   = "AES-256-GCM encryption"
)

// Trace runs the same logical stages as Encrypt but records each
// intermediate representation. It is a separate code path so the hot
// encrypt path carries no instrumentation. The final step's result is a
// real ciphertext and decrypts back to the input.
func (e *Engine) Trace(plaintext []byte) ([]models.TraceStep, error) {
	steps := make([]models.TraceStep, 0, 3)

	// 1: the input reduced to its byte sequence
	steps = append(steps, models.TraceStep{
		Step:   StepNormalize,
		Result: hex.EncodeToString(plaintext),
	})

	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}

	// 2: a fresh random nonce, exactly as Encrypt would draw it
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	steps = append(steps, models.TraceStep{
		Step:   StepGenIV,
		Result: hex.EncodeToString(nonce),
	})

	// 3: the sealed blob in the same framing Encrypt produces
	out := gcm.Seal(nil, nonce, plaintext, nil)
	steps = append(steps, models.TraceStep{
		Step:   StepEncrypt,
		Result: base64.StdEncoding.EncodeToString(append(nonce, out...)),
	})
	return steps, nil
}
