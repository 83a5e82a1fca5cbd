package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Token holds a cluster credential in a memguard enclave so the
// plaintext is encrypted at rest in memory and protected from swapping.
// The replication run opens it briefly for each API request.
type Token struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed allows idempotent Destroy() calls and prevents use
	// after destroy
	destroyed bool
}

// NewToken seals a credential string into protected memory. The caller
// should drop its own copy of the plaintext as soon as possible.
func NewToken(value string) *Token {
	if value == "" {
		// memguard rejects zero-length buffers
		return &Token{}
	}
	// memguard.NewEnclave encrypts the data (XSalsa20Poly1305),
	// attempts to mlock the backing pages and adds guard pages. If
	// mlock is unavailable memguard degrades to standard allocation.
	return &Token{
		enclave: memguard.NewEnclave([]byte(value)),
	}
}

// Reveal decrypts the token and returns the plaintext plus a cleanup
// function that wipes the unsealed buffer. Callers must invoke the
// cleanup as soon as the request headers are built.
func (t *Token) Reveal() (string, func(), error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.destroyed || t.enclave == nil {
		return "", func() {}, nil
	}

	locked, err := t.enclave.Open()
	if err != nil {
		return "", func() {}, err
	}
	// Copy out of the locked region: the returned string must stay
	// valid while the request is in flight, after cleanup has wiped
	// the buffer.
	plain := string(locked.Bytes())
	return plain, locked.Destroy, nil
}

// Destroy marks the token as destroyed and prevents further use. The
// encrypted enclave data is safe to leave for garbage collection; call
// memguard.Purge() at process exit for full cleanup.
func (t *Token) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return
	}
	t.enclave = nil
	t.destroyed = true
}
