package security

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngineHex(testKeyHex, "v1")
	if err != nil {
		t.Fatalf("NewEngineHex: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	for _, pt := range []string{"hello", "", "héllo wörld 🔒", strings.Repeat("a", 4096)} {
		ct, err := e.Encrypt([]byte(pt))
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", pt, err)
		}
		got, err := e.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", pt, err)
		}
		if string(got) != pt {
			t.Fatalf("round trip mismatch: got %q want %q", got, pt)
		}
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	e := newTestEngine(t)
	c1, err := e.Encrypt([]byte("same input"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	c2, err := e.Encrypt([]byte("same input"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if c1 == c2 {
		t.Fatal("two encryptions of the same plaintext produced identical ciphertext")
	}
	for _, ct := range []string{c1, c2} {
		pt, err := e.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if string(pt) != "same input" {
			t.Fatalf("decrypted %q", pt)
		}
	}
}

func TestDecryptFailures(t *testing.T) {
	e := newTestEngine(t)
	ct, err := e.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(ct)
	flipped := append([]byte(nil), raw...)
	flipped[len(flipped)-1] ^= 0x01

	other, err := NewEngineHex("1f1e1d1c1b1a191817161514131211100f0e0d0c0b0a09080706050403020100", "v1")
	if err != nil {
		t.Fatalf("NewEngineHex: %v", err)
	}
	defer other.Close()

	cases := map[string]struct {
		engine *Engine
		input  string
	}{
		"not base64":   {e, "%%% not base64 %%%"},
		"truncated":    {e, base64.StdEncoding.EncodeToString(raw[:4])},
		"corrupted":    {e, base64.StdEncoding.EncodeToString(flipped)},
		"wrong key":    {other, ct},
		"empty string": {e, ""},
	}
	for name, tc := range cases {
		if _, err := tc.engine.Decrypt(tc.input); !errors.Is(err, ErrDecrypt) {
			t.Errorf("%s: got %v, want ErrDecrypt", name, err)
		}
	}
}

func TestNewEngineRejectsBadKeys(t *testing.T) {
	if _, err := NewEngineHex("zz", "v1"); err == nil {
		t.Fatal("accepted non-hex key")
	}
	if _, err := NewEngine(make([]byte, 16), "v1"); err == nil {
		t.Fatal("accepted 16-byte key")
	}
	if _, err := NewEngine(nil, "v1"); err == nil {
		t.Fatal("accepted nil key")
	}
}

func TestKeyVersionDefault(t *testing.T) {
	e, err := NewEngineHex(testKeyHex, "")
	if err != nil {
		t.Fatalf("NewEngineHex: %v", err)
	}
	defer e.Close()
	if v := e.KeyVersion(); v != "v1" {
		t.Fatalf("KeyVersion = %q, want v1", v)
	}
}

func TestTraceSteps(t *testing.T) {
	e := newTestEngine(t)
	input := []byte("trace me")
	steps, err := e.Trace(input)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	wantOrder := []string{StepNormalize, StepGenIV, StepEncrypt}
	for i, w := range wantOrder {
		if steps[i].Step != w {
			t.Fatalf("step %d = %q, want %q", i, steps[i].Step, w)
		}
	}

	normalized, err := hex.DecodeString(steps[0].Result)
	if err != nil {
		t.Fatalf("step 0 is not hex: %v", err)
	}
	if !bytes.Equal(normalized, input) {
		t.Fatalf("step 0 decodes to %q, want %q", normalized, input)
	}

	nonce, err := hex.DecodeString(steps[1].Result)
	if err != nil {
		t.Fatalf("step 1 is not hex: %v", err)
	}
	if len(nonce) != 12 {
		t.Fatalf("nonce length %d, want 12", len(nonce))
	}

	// the final step is a real ciphertext under the engine's key
	pt, err := e.Decrypt(steps[2].Result)
	if err != nil {
		t.Fatalf("final step does not decrypt: %v", err)
	}
	if !bytes.Equal(pt, input) {
		t.Fatalf("final step decrypts to %q, want %q", pt, input)
	}
}

func TestTraceNonceIsFresh(t *testing.T) {
	e := newTestEngine(t)
	s1, err := e.Trace([]byte("x"))
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	s2, err := e.Trace([]byte("x"))
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if s1[1].Result == s2[1].Result {
		t.Fatal("two traces drew the same nonce")
	}
}
