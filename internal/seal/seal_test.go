package seal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	seed, err := CreateSeed(filepath.Join(t.TempDir(), "store.key"))
	require.NoError(t, err)
	key, err := MachineKey(seed, BindSeedOnly)
	require.NoError(t, err)
	return key
}

func TestSealOpen(t *testing.T) {
	key := testKey(t)
	plain := bytes.Repeat([]byte("Oh my gosh! "), 100)

	sealed, err := Seal(key, []byte("expansions"), plain)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "Oh my gosh")

	got, err := Open(key, []byte("expansions"), sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestOpenRejects(t *testing.T) {
	key := testKey(t)
	sealed, err := Seal(key, []byte("config"), []byte(`{"a":1}`))
	require.NoError(t, err)

	t.Run("wrong aad", func(t *testing.T) {
		_, err := Open(key, []byte("expansions"), sealed)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := Open(testKey(t), []byte("config"), sealed)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Open(key, []byte("config"), sealed[:len(sealed)/2])
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := Open(key, []byte("config"), []byte{1, 2, 3})
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("flipped bit", func(t *testing.T) {
		bad := bytes.Clone(sealed)
		bad[len(bad)-1] ^= 1
		_, err := Open(key, []byte("config"), bad)
		assert.ErrorIs(t, err, ErrDecrypt)
	})
}

func TestSeedLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "store.key")

	_, err := LoadSeed(path)
	assert.ErrorIs(t, err, ErrKeyMissing)

	seed, err := CreateSeed(path)
	require.NoError(t, err)
	assert.Len(t, seed, seedSize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = CreateSeed(path)
	assert.Error(t, err, "existing seed must not be replaced")

	loaded, err := LoadSeed(path)
	require.NoError(t, err)
	assert.Equal(t, seed, loaded)

	k1, err := MachineKey(seed, BindSeedOnly)
	require.NoError(t, err)
	k2, err := MachineKey(loaded, BindSeedOnly)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestMachineKeyUnknownBinding(t *testing.T) {
	_, err := MachineKey(make([]byte, seedSize), "tpm")
	assert.Error(t, err)
}

func TestPassphraseKey(t *testing.T) {
	p, err := NewKDFParams()
	require.NoError(t, err)
	p.Memory = 8 * 1024 // keep the test fast
	p.Time = 1

	k1, err := PassphraseKey([]byte("correct horse"), p)
	require.NoError(t, err)
	k2, err := PassphraseKey([]byte("correct horse"), p)
	require.NoError(t, err)
	k3, err := PassphraseKey([]byte("battery staple"), p)
	require.NoError(t, err)

	assert.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)

	_, err = PassphraseKey(nil, p)
	assert.ErrorIs(t, err, ErrEmptyPassphrase)

	p.Memory = 1 << 30
	_, err = PassphraseKey([]byte("x"), p)
	assert.Error(t, err)
}

func TestWipe(t *testing.T) {
	b := []byte("secret")
	Wipe(b)
	assert.Equal(t, make([]byte, 6), b)
}
