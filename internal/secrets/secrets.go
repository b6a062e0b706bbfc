// Package secrets encrypts sensitive state values with age before they are
// persisted.
package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"filippo.io/age"
	"golang.org/x/crypto/blake2b"
)

// DefaultWorkFactor is the scrypt work factor (log2 N) used for new state.
const DefaultWorkFactor = 18

// ErrEmptyPassphrase is returned when no passphrase is configured.
var ErrEmptyPassphrase = errors.New("secrets passphrase is empty (set AKSGRAPH_CONFIG_PASSPHRASE)")

// Crypter encrypts values for a passphrase protected stack. Every scrypt
// operation costs a full key derivation, so ciphertexts are remembered per
// plaintext digest and an unchanged value encrypts to the ciphertext it
// already has.
type Crypter struct {
	recipient *age.ScryptRecipient
	identity  *age.ScryptIdentity

	mu     sync.Mutex
	sealed map[[blake2b.Size256]byte]string
}

// NewPassphraseCrypter returns a Crypter deriving keys from passphrase.
// workFactor <= 0 selects DefaultWorkFactor.
func NewPassphraseCrypter(passphrase string, workFactor int) (*Crypter, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if workFactor <= 0 {
		workFactor = DefaultWorkFactor
	}
	r, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("scrypt recipient: %w", err)
	}
	r.SetWorkFactor(workFactor)
	id, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("scrypt identity: %w", err)
	}
	return &Crypter{recipient: r, identity: id, sealed: map[[blake2b.Size256]byte]string{}}, nil
}

// Encrypt returns the base64 encoded age ciphertext of plaintext.
func (c *Crypter) Encrypt(plaintext []byte) (string, error) {
	sum := blake2b.Sum256(plaintext)
	c.mu.Lock()
	ct, ok := c.sealed[sum]
	c.mu.Unlock()
	if ok {
		return ct, nil
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, c.recipient)
	if err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	ct = base64.StdEncoding.EncodeToString(buf.Bytes())
	c.remember(sum, ct)
	return ct, nil
}

func (c *Crypter) remember(sum [blake2b.Size256]byte, ciphertext string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed[sum] = ciphertext
}

// Decrypt reverses Encrypt.
func (c *Crypter) Decrypt(ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(data), c.identity)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	pt, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	c.remember(blake2b.Sum256(pt), ciphertext)
	return pt, nil
}
