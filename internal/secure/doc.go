// Package secure provides memory-safe storage for cluster tokens.
//
// Both replication tokens are administrative credentials with full
// access to their cluster, and a sync run can hold them for hours in
// monitor mode. This package wraps memguard so the plaintext tokens
// are:
//
//   - Encrypted at rest in memory (XSalsa20Poly1305)
//   - Protected from swapping via mlock where available
//   - Securely wiped after each request builds its headers
//
// Usage:
//
//	tok := secure.NewToken(cfg.Primary.Token)
//	defer tok.Destroy()
//
//	plain, done, err := tok.Reveal()
//	if err != nil {
//	    return err
//	}
//	defer done()
//	req.Header.Set("X-Vault-Token", plain)
//
// If mlock is unavailable (e.g. RLIMIT_MEMLOCK on Linux), memguard
// degrades gracefully to standard allocation. For complete cleanup at
// exit, main defers memguard.Purge().
package secure
