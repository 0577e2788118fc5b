package models

// Message is the durable unit of communication. Both forms of the text are
// kept on purpose: this is a teaching demo and clients render the plaintext
// next to the ciphertext it produced. A production system would never store
// or broadcast plaintext alongside ciphertext.
type Message struct {
	ID        uint64 `json:"id"`
	Plaintext string `json:"plaintext"`
	// Ciphertext is base64(nonce|ciphertext) under the key identified by
	// KeyVersion.
	Ciphertext string `json:"ciphertext"`
	KeyVersion string `json:"key_version,omitempty"`
	// TS is the creation time in UTC nanoseconds, assigned by the store and
	// monotonic within a single store instance.
	TS int64 `json:"timestamp"`
}

// TraceStep is one stage of the instrumented encryption pipeline. Result is
// always a printable representation (hex or base64), never raw bytes.
type TraceStep struct {
	Step   string `json:"step"`
	Result string `json:"result"`
}
