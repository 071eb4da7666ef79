// internal/auth/keyring.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"

	"realticket/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Argon2id parameters for API secrets.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// credential is an account's salted Argon2id secret hash.
type credential struct {
	hash []byte
	salt []byte
}

func newCredential(secret string) (credential, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return credential{}, err
	}
	return credential{hash: deriveKey(secret, salt), salt: salt}, nil
}

// matches compares secret with the stored hash in constant time.
func (c credential) matches(secret string) bool {
	return subtle.ConstantTimeCompare(c.hash, deriveKey(secret, c.salt)) == 1
}

func deriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// Keyring maps accounts to hashed API secrets. Secrets are never kept in clear.
type Keyring struct {
	mu          sync.RWMutex
	credentials map[domain.Address]credential
}

func NewKeyring() *Keyring {
	return &Keyring{credentials: make(map[domain.Address]credential)}
}

// ParseKeyring builds a keyring from "address:secret" pairs separated by commas.
func ParseKeyring(pairs string) (*Keyring, error) {
	k := NewKeyring()
	for _, pair := range strings.Split(pairs, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		addr, secret, ok := strings.Cut(pair, ":")
		if !ok || addr == "" || secret == "" {
			return nil, fmt.Errorf("malformed api key entry %q, want address:secret", pair)
		}
		if err := k.Add(domain.Address(addr), secret); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Add registers or replaces the secret of account.
func (k *Keyring) Add(account domain.Address, secret string) error {
	if account.IsZero() {
		return fmt.Errorf("%w: api key account", domain.ErrInvalidAddress)
	}
	cred, err := newCredential(secret)
	if err != nil {
		return fmt.Errorf("failed to hash secret: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.credentials[account] = cred
	return nil
}

// Len returns the number of registered accounts.
func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.credentials)
}

// Verify checks secret against the stored hash of account.
func (k *Keyring) Verify(account domain.Address, secret string) error {
	k.mu.RLock()
	cred, ok := k.credentials[account]
	k.mu.RUnlock()
	if !ok || !cred.matches(secret) {
		return ErrInvalidCredentials
	}
	return nil
}
