package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const seedSize = 32

// Binding names what, besides the seed file, a machine key is bound to.
type Binding string

const (
	BindMachineID Binding = "machine-id"
	BindSeedOnly  Binding = "seed"
)

var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// MachineID returns the host's machine id, or "" when none is available.
func MachineID() string {
	for _, p := range machineIDPaths {
		data, err := os.ReadFile(p)
		if err == nil {
			if id := strings.TrimSpace(string(data)); id != "" {
				return id
			}
		}
	}
	return ""
}

// PreferredBinding is the strongest binding this host supports.
func PreferredBinding() Binding {
	if MachineID() != "" {
		return BindMachineID
	}
	return BindSeedOnly
}

// LoadSeed reads the seed file. A missing file yields ErrKeyMissing.
func LoadSeed(path string) ([]byte, error) {
	seed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyMissing, path)
		}
		return nil, fmt.Errorf("failed to read key seed: %w", err)
	}
	if len(seed) != seedSize {
		return nil, fmt.Errorf("%w: %s has %d bytes, want %d", ErrKeyMissing, path, len(seed), seedSize)
	}
	return seed, nil
}

// CreateSeed writes a fresh random seed with mode 0600. It refuses to
// replace an existing seed.
func CreateSeed(path string) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	seed := make([]byte, seedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("random generation failed: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create key seed: %w", err)
	}
	if _, err := f.Write(seed); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write key seed: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return seed, nil
}

// MachineKey derives the store key from seed under binding.
func MachineKey(seed []byte, binding Binding) ([]byte, error) {
	var salt []byte
	switch binding {
	case BindMachineID:
		id := MachineID()
		if id == "" {
			return nil, fmt.Errorf("%w: store is bound to a machine id this host does not have", ErrKeyMissing)
		}
		sum := sha256.Sum256([]byte(id))
		salt = sum[:]
	case BindSeedOnly:
	default:
		return nil, fmt.Errorf("unknown key binding %q", binding)
	}

	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, seed, salt, []byte("textshortcutter-store-v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("HKDF expand failed: %w", err)
	}
	return key, nil
}
