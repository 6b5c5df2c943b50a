package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s := NewStorage(t.TempDir())
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitCreatesDatabase(t *testing.T) {
	s := newTestStorage(t)
	assert.True(t, s.Enabled())

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestInitIsIdempotentAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	first := NewStorage(dir)
	require.NoError(t, first.Init())
	require.NoError(t, first.RecordActivations([]Activation{{Timestamp: time.Now(), Outcome: OutcomePasted}}))
	require.NoError(t, first.Close())

	second := NewStorage(dir)
	require.NoError(t, second.Init())
	defer second.Close()

	counts, err := second.Counts(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[OutcomePasted])
}

func TestInitFailureDisables(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	s := NewStorage(filepath.Join(blocker, "sub"))
	assert.Error(t, s.Init())
	assert.False(t, s.Enabled())

	// Every operation is a no-op.
	assert.NoError(t, s.RecordActivations([]Activation{{Outcome: OutcomePasted}}))
	counts, err := s.Counts(time.Time{})
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.NoError(t, s.Close())
}

func TestCountsAndRecent(t *testing.T) {
	s := newTestStorage(t)
	base := time.Now().Add(-time.Hour)

	events := []Activation{
		{Timestamp: base, Outcome: OutcomeDenied, App: "banking.exe"},
		{Timestamp: base.Add(time.Minute), Outcome: OutcomePasted, App: "editor", Shortcut: "omg"},
		{Timestamp: base.Add(2 * time.Minute), Outcome: OutcomePasted},
		{Timestamp: base.Add(3 * time.Minute), Outcome: OutcomeCancelled},
	}
	require.NoError(t, s.RecordActivations(events))

	counts, err := s.Counts(base)
	require.NoError(t, err)
	assert.Equal(t, map[Outcome]int64{OutcomeDenied: 1, OutcomePasted: 2, OutcomeCancelled: 1}, counts)

	counts, err = s.Counts(base.Add(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, map[Outcome]int64{OutcomePasted: 1, OutcomeCancelled: 1}, counts)

	recent, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, OutcomeCancelled, recent[0].Outcome)
	assert.Equal(t, OutcomePasted, recent[1].Outcome)
	assert.Empty(t, recent[1].App)

	all, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "omg", all[2].Shortcut)
	assert.WithinDuration(t, events[1].Timestamp, all[2].Timestamp, time.Millisecond)
}

func TestCleanupAndClear(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.RecordActivations([]Activation{
		{Timestamp: time.Now().Add(-48 * time.Hour), Outcome: OutcomePasted},
		{Timestamp: time.Now(), Outcome: OutcomePasted},
	}))

	n, err := s.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Clear())
	recent, err := s.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
