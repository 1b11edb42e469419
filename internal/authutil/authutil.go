// Package authutil provides a small bcrypt-backed credential store for
// embedders that want password authentication without rolling their own
// hashing. It is a convenience, not a requirement: the shell's auth step
// only needs a func(username, password string) (bool, error), and an
// embedder with its own user store can supply one directly.
package authutil

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// BcryptValidator is an in-memory username/password store hashed with
// bcrypt. It is safe for concurrent use.
type BcryptValidator struct {
	mu     sync.RWMutex
	hashed map[string][]byte
}

// NewBcryptValidator returns an empty validator.
func NewBcryptValidator() *BcryptValidator {
	return &BcryptValidator{hashed: make(map[string][]byte)}
}

// SetPassword hashes password and stores it under username, replacing any
// previous credential for that username.
func (v *BcryptValidator) SetPassword(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("authutil: hashing password for %q: %w", username, err)
	}
	v.mu.Lock()
	v.hashed[username] = hash
	v.mu.Unlock()
	return nil
}

// Validate reports whether password matches the stored hash for
// username. An unknown username always fails; it still runs a dummy
// bcrypt comparison first so that probing for valid usernames can't be
// timed by the absence of that work.
func (v *BcryptValidator) Validate(username, password string) (bool, error) {
	v.mu.RLock()
	hash, ok := v.hashed[username]
	v.mu.RUnlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false, nil
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil, nil
}

// dummyHash is a fixed bcrypt hash compared against on unknown usernames
// purely to keep the validator's timing independent of whether the
// username exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)
