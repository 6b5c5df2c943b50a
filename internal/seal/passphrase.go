package seal

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ErrEmptyPassphrase is returned when an export or import has no passphrase.
var ErrEmptyPassphrase = errors.New("passphrase is empty")

// KDFParams are the argon2id parameters recorded in an export file.
type KDFParams struct {
	Name    string `json:"name"`
	Salt    []byte `json:"salt"`
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// NewKDFParams returns argon2id parameters with a fresh random salt.
func NewKDFParams() (KDFParams, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return KDFParams{}, fmt.Errorf("random generation failed: %w", err)
	}
	return KDFParams{Name: "argon2id", Salt: salt, Time: 3, Memory: 64 * 1024, Threads: 4}, nil
}

// PassphraseKey derives a key from passphrase with p.
func PassphraseKey(passphrase []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if p.Name != "argon2id" {
		return nil, fmt.Errorf("unsupported kdf %q", p.Name)
	}
	if len(p.Salt) < 8 || p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return nil, errors.New("invalid kdf parameters")
	}
	// Bound attacker-controlled parameters from foreign files.
	if p.Memory > 1<<21 || p.Time > 16 {
		return nil, errors.New("kdf parameters exceed limits")
	}
	return argon2.IDKey(passphrase, p.Salt, p.Time, p.Memory, p.Threads, KeySize), nil
}
