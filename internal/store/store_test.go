package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobersnip/TextShortcutter/internal/config"
)

func openStore(t *testing.T, dir string, debounce time.Duration) *Store {
	t.Helper()
	s, err := Open(dir, Options{Debounce: debounce})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newStore returns a freshly initialized store in a temp dir.
func newStore(t *testing.T) *Store {
	t.Helper()
	s := openStore(t, t.TempDir(), time.Hour)
	_, err := s.Load()
	require.ErrorIs(t, err, ErrStoreMissing)
	_, err = s.InitDefaults()
	require.NoError(t, err)
	return s
}

func TestFirstRunDefaults(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, time.Hour)

	_, err := s.Load()
	require.ErrorIs(t, err, ErrStoreMissing)

	snap, err := s.InitDefaults()
	require.NoError(t, err)
	assert.Equal(t, "ctrl+space", snap.Config.TriggerCombo.String())
	assert.Empty(t, snap.Expansions)

	_, err = s.InitDefaults()
	assert.Error(t, err, "existing store must not be replaced")

	again := openStore(t, dir, time.Hour)
	snap, err = again.Load()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), snap.Config)

	info, err := os.Stat(filepath.Join(dir, seedFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadCorruptLeavesFileUntouched(t *testing.T) {
	s := newStore(t)
	_, err := s.Add("omg", "Oh my gosh!", "")
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	truncated := data[:len(data)/2]
	require.NoError(t, os.WriteFile(s.Path(), truncated, 0600))

	other := openStore(t, s.Dir(), time.Hour)
	_, err = other.Load()
	require.ErrorIs(t, err, ErrStoreCorrupt)

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, truncated, after)
}

func TestLoadTamperedRecord(t *testing.T) {
	s := newStore(t)
	_, err := s.Add("omg", "Oh my gosh!", "")
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	// Swap the records: each is bound to its own name.
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	env.Config, env.Expansions = env.Expansions, env.Config
	out, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), out, 0600))

	_, err = openStore(t, s.Dir(), time.Hour).Load()
	assert.ErrorIs(t, err, ErrStoreCorrupt)
}

func TestLoadMissingKey(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.Remove(filepath.Join(s.Dir(), seedFileName)))

	_, err := openStore(t, s.Dir(), time.Hour).Load()
	assert.ErrorIs(t, err, ErrStoreCorrupt)
}

func TestAddEditDelete(t *testing.T) {
	s := newStore(t)

	e, err := s.Add("  OMG ", "Oh my gosh!", " exclamation ")
	require.NoError(t, err)
	assert.Equal(t, "omg", e.Shortcut)
	assert.Equal(t, "exclamation", e.Description)
	assert.True(t, e.Enabled)
	assert.NotEmpty(t, e.ID)

	_, err = s.Add("omg", "again", "")
	assert.ErrorIs(t, err, ErrDuplicateShortcut)

	_, err = s.Add("two words", "x", "")
	assert.ErrorIs(t, err, ErrInvalidExpansion)

	_, err = s.Add("empty", "", "")
	assert.ErrorIs(t, err, ErrInvalidExpansion)

	brb, err := s.Add("brb", "be right back", "")
	require.NoError(t, err)

	newShortcut := "brb"
	_, err = s.Edit(e.ID, Patch{Shortcut: &newShortcut})
	assert.ErrorIs(t, err, ErrDuplicateShortcut)

	body := "Oh my goodness!"
	edited, err := s.Edit(e.ID, Patch{Body: &body})
	require.NoError(t, err)
	assert.Equal(t, body, edited.Body)

	disabled, err := s.SetEnabled(brb.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)

	require.NoError(t, s.Delete(brb.ID))
	assert.ErrorIs(t, s.Delete(brb.ID), ErrNotFound)

	reloaded := openStore(t, s.Dir(), time.Hour)
	snap, err := reloaded.Load()
	require.NoError(t, err)
	require.Len(t, snap.Expansions, 1)
	assert.Equal(t, "Oh my goodness!", snap.Expansions[0].Body)

	found, err := reloaded.FindShortcut("OMG")
	require.NoError(t, err)
	assert.Equal(t, e.ID, found.ID)
}

func TestEmptyBodyAllowedByConfig(t *testing.T) {
	s := newStore(t)
	_, err := s.UpdateConfig(func(c *config.Configuration) error {
		c.AllowEmptyBody = true
		return nil
	})
	require.NoError(t, err)

	_, err = s.Add("blank", "", "")
	require.NoError(t, err)

	_, err = s.UpdateConfig(func(c *config.Configuration) error {
		c.AllowEmptyBody = false
		return nil
	})
	var invalidCfg *config.InvalidConfigError
	assert.ErrorAs(t, err, &invalidCfg)
}

func TestLimitReached(t *testing.T) {
	s := newStore(t)
	_, err := s.UpdateConfig(func(c *config.Configuration) error {
		c.MaxExpansions = 1
		return nil
	})
	require.NoError(t, err)

	_, err = s.Add("a", "1", "")
	require.NoError(t, err)
	_, err = s.Add("b", "2", "")
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	s := newStore(t)
	_, err := s.UpdateConfig(func(c *config.Configuration) error {
		c.SecurityLevel = 42
		return nil
	})
	var invalidCfg *config.InvalidConfigError
	require.ErrorAs(t, err, &invalidCfg)
	assert.Equal(t, 5, s.Config().SecurityLevel)
}

func TestPersistFailureKeepsPreviousState(t *testing.T) {
	s := newStore(t)
	_, err := s.Add("omg", "Oh my gosh!", "")
	require.NoError(t, err)

	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	writes := s.Writes()

	s.verifyHook = func([]byte) error { return errors.New("disk said no") }
	_, err = s.Add("brb", "be right back", "")
	require.ErrorIs(t, err, ErrStorePersistFailed)
	s.verifyHook = nil

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, writes, s.Writes())

	_, err = s.FindShortcut("brb")
	assert.ErrorIs(t, err, ErrNotFound, "failed write must not become live")
}

func TestRecordUseIsDebounced(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, 150*time.Millisecond)
	_, err := s.Load()
	require.ErrorIs(t, err, ErrStoreMissing)
	_, err = s.InitDefaults()
	require.NoError(t, err)

	e, err := s.Add("omg", "Oh my gosh!", "")
	require.NoError(t, err)
	writes := s.Writes()

	require.NoError(t, s.RecordUse(e.ID))
	require.NoError(t, s.RecordUse(e.ID))

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UseCount, "in-memory count moves at once")
	assert.Equal(t, writes, s.Writes(), "no write inside the window")

	require.Eventually(t, func() bool { return s.Writes() == writes+1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, writes+1, s.Writes(), "exactly one write for both uses")
	assert.Zero(t, s.Pending())

	snap, err := openStore(t, dir, time.Hour).Load()
	require.NoError(t, err)
	require.Len(t, snap.Expansions, 1)
	assert.Equal(t, int64(2), snap.Expansions[0].UseCount)
	assert.False(t, snap.Expansions[0].LastUsedAt.IsZero())
}

func TestRecordUseUnknown(t *testing.T) {
	s := newStore(t)
	assert.ErrorIs(t, s.RecordUse("nope"), ErrNotFound)
}

func TestCloseFlushesPendingUse(t *testing.T) {
	s := newStore(t)
	e, err := s.Add("omg", "Oh my gosh!", "")
	require.NoError(t, err)
	require.NoError(t, s.RecordUse(e.ID))

	require.NoError(t, s.Close())

	snap, err := openStore(t, s.Dir(), time.Hour).Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Expansions[0].UseCount)
}

func TestConcurrentUsesSurviveWrites(t *testing.T) {
	s := newStore(t)
	e, err := s.Add("omg", "Oh my gosh!", "")
	require.NoError(t, err)

	const uses = 50
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < uses; i++ {
			assert.NoError(t, s.RecordUse(e.ID))
		}
	}()
	for i := 0; i < 5; i++ {
		_, err := s.Add("x"+string(rune('a'+i)), "body", "")
		require.NoError(t, err)
	}
	wg.Wait()
	require.NoError(t, s.Flush())

	snap, err := openStore(t, s.Dir(), time.Hour).Load()
	require.NoError(t, err)
	for _, x := range snap.Expansions {
		if x.ID == e.ID {
			assert.Equal(t, int64(uses), x.UseCount)
		}
	}
}

func TestWriterSeesOtherProcessChanges(t *testing.T) {
	a := newStore(t)
	b := openStore(t, a.Dir(), time.Hour)
	_, err := b.Load()
	require.NoError(t, err)

	_, err = b.Add("fromb", "b", "")
	require.NoError(t, err)
	_, err = a.Add("froma", "a", "")
	require.NoError(t, err)

	snap, err := openStore(t, a.Dir(), time.Hour).Load()
	require.NoError(t, err)
	assert.Len(t, snap.Expansions, 2, "a must not clobber b's write")
}

func TestWatchReloadsExternalChange(t *testing.T) {
	a := newStore(t)

	var mu sync.Mutex
	var last Snapshot
	a.Subscribe(func(s Snapshot) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Watch(ctx) }()
	time.Sleep(50 * time.Millisecond)

	b := openStore(t, a.Dir(), time.Hour)
	_, err := b.Load()
	require.NoError(t, err)
	_, err = b.Add("ext", "external", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := a.FindShortcut("ext")
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, last.Expansions, 1)
}

func TestSubscribeOnMutation(t *testing.T) {
	s := newStore(t)
	var got []int
	s.Subscribe(func(snap Snapshot) { got = append(got, len(snap.Expansions)) })

	e, err := s.Add("a", "1", "")
	require.NoError(t, err)
	require.NoError(t, s.RecordUse(e.ID))
	require.NoError(t, s.Delete(e.ID))

	assert.Equal(t, []int{1, 1, 0}, got)
}

func TestNormalizeShortcut(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"omg", "omg", false},
		{" OMG\t", "omg", false},
		{"", "", true},
		{"a b", "", true},
		{string(make([]byte, MaxShortcutLen+1)), "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeShortcut(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
