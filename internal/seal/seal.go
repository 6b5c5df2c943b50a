/*
Package seal encrypts store records at rest.

Records are compressed with zstd and sealed with XChaCha20-Poly1305. The key
is either machine-bound (HKDF over a random seed file and the host's machine
id) for the local store, or derived from a passphrase with argon2id for
portable export files. Losing the seed file makes the local store
permanently unreadable; there is no recovery path.
*/
package seal

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the symmetric key length in bytes.
const KeySize = chacha20poly1305.KeySize

const maxDecodedSize = 64 << 20

var (
	// ErrDecrypt means authentication failed: wrong key, wrong record
	// name, or tampered/truncated ciphertext.
	ErrDecrypt = errors.New("decryption failed")

	// ErrKeyMissing means sealed data exists but the key material is gone.
	ErrKeyMissing = errors.New("encryption key material is missing")
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
)

// Seal compresses plaintext and encrypts it under key. aad binds the
// ciphertext to its purpose (for example the record name). The output is
// nonce || ciphertext.
func Seal(key, aad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	compressed := encoder.EncodeAll(plaintext, nil)
	defer Wipe(compressed)

	out := make([]byte, aead.NonceSize(), aead.NonceSize()+len(compressed)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(out, out, compressed, aad), nil
}

// Open reverses Seal.
func Open(key, aad, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	compressed, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	defer Wipe(compressed)

	plain, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt payload: %v", ErrDecrypt, err)
	}
	return plain, nil
}

// Wipe zeroes b.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
