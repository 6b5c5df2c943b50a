/*
Package store is the encrypted local store for the configuration record and
the expansions.

Layout inside the data directory:

	store.sealed   JSON envelope holding two sealed records, "config" and "expansions"
	store.key      32-byte random seed the store key is derived from (0600)
	store.lock     cross-process writer lock

Writes are serialized: one writer at a time inside the process (writeMu) and
across processes (store.lock). Every write goes to a temp file, is decrypted
and validated again, and only then renamed over store.sealed, so a failed
write never damages the last good file. Reads are served from memory and are
never blocked by a writer.
*/
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobersnip/TextShortcutter/internal/config"
	"github.com/bobersnip/TextShortcutter/internal/logging"
	"github.com/bobersnip/TextShortcutter/internal/seal"
)

const (
	storeFileName = "store.sealed"
	seedFileName  = "store.key"
	lockFileName  = "store.lock"

	envelopeFormat  = "textshortcutter-store"
	envelopeVersion = 1

	lockTimeout       = 5 * time.Second
	lockRetryInterval = 25 * time.Millisecond

	// DefaultDebounce coalesces usage updates into one write.
	DefaultDebounce = 2 * time.Second
)

var (
	aadConfig     = []byte("textshortcutter/v1/config")
	aadExpansions = []byte("textshortcutter/v1/expansions")
)

// Options tune a Store.
type Options struct {
	// Debounce is the window within which RecordUse calls share one write.
	Debounce time.Duration

	// OnPersistError is called when a background write fails.
	OnPersistError func(error)

	// Now replaces time.Now in tests.
	Now func() time.Time
}

type envelope struct {
	Format     string       `json:"format"`
	Version    int          `json:"version"`
	Binding    seal.Binding `json:"binding"`
	Config     []byte       `json:"config"`
	Expansions []byte       `json:"expansions"`
}

type useDelta struct {
	count int64
	last  time.Time
}

// Store owns the durable configuration and expansion records.
type Store struct {
	dir  string
	opts Options

	// writeMu admits one writer at a time: commits, export, import, reload.
	writeMu sync.Mutex

	mu         sync.RWMutex
	st         state
	loaded     bool
	key        []byte
	binding    seal.Binding
	lastDigest [sha256.Size]byte
	pending    map[string]useDelta

	subsMu sync.Mutex
	subs   []func(Snapshot)

	kick     chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	writes atomic.Int64

	// verifyHook, when set, runs against each temp file before the rename.
	verifyHook func(data []byte) error
}

// Open prepares a store rooted at dir. It does not read anything yet; call
// Load, and InitDefaults when Load reports ErrStoreMissing.
func Open(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		dir:      dir,
		opts:     opts,
		pending:  make(map[string]useDelta),
		kick:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.persistLoop()

	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the location of the sealed store file.
func (s *Store) Path() string { return filepath.Join(s.dir, storeFileName) }

func (s *Store) seedPath() string { return filepath.Join(s.dir, seedFileName) }
func (s *Store) lockPath() string { return filepath.Join(s.dir, lockFileName) }

// Writes returns how many times the store file has been written.
func (s *Store) Writes() int64 { return s.writes.Load() }

// Load reads, decrypts and validates the store. Errors wrap ErrStoreMissing
// or ErrStoreCorrupt; on ErrStoreCorrupt the file is not modified.
func (s *Store) Load() (Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.loadLocked(); err != nil {
		return Snapshot{}, err
	}
	snap := s.Snapshot()
	s.notify(snap)
	return snap, nil
}

// loadLocked replaces the in-memory state with the file content, carrying
// over usage that has not been written yet. Caller holds writeMu.
func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrStoreMissing, s.Path())
		}
		return fmt.Errorf("failed to read store: %w", err)
	}

	seed, err := seal.LoadSeed(s.seedPath())
	if err != nil {
		return fmt.Errorf("%w: %v (a lost key cannot be recovered)", ErrStoreCorrupt, err)
	}
	defer seal.Wipe(seed)

	st, env, key, err := decodeStore(data, seed)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for id, d := range s.pending {
		e, ok := st.exps[id]
		if !ok {
			delete(s.pending, id)
			continue
		}
		applyDelta(&e, d)
		st.exps[id] = e
	}
	s.st = st
	s.key = key
	s.binding = env.Binding
	s.lastDigest = sha256.Sum256(data)
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func decodeStore(data, seed []byte) (state, envelope, []byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return state{}, env, nil, corrupt("envelope: %v", err)
	}
	if env.Format != envelopeFormat || env.Version != envelopeVersion {
		return state{}, env, nil, corrupt("unsupported format %q version %d", env.Format, env.Version)
	}

	key, err := seal.MachineKey(seed, env.Binding)
	if err != nil {
		return state{}, env, nil, corrupt("%v", err)
	}

	st, err := openRecords(key, env.Config, env.Expansions)
	if err != nil {
		return state{}, env, nil, err
	}
	return st, env, key, nil
}

func openRecords(key, sealedCfg, sealedExps []byte) (state, error) {
	cfgPlain, err := seal.Open(key, aadConfig, sealedCfg)
	if err != nil {
		return state{}, corrupt("config record: %v", err)
	}
	defer seal.Wipe(cfgPlain)

	expsPlain, err := seal.Open(key, aadExpansions, sealedExps)
	if err != nil {
		return state{}, corrupt("expansions record: %v", err)
	}
	defer seal.Wipe(expsPlain)

	return decodeRecords(cfgPlain, expsPlain)
}

func decodeRecords(cfgPlain, expsPlain []byte) (state, error) {
	if err := validateAgainst(configSchemaURL, cfgPlain); err != nil {
		return state{}, corrupt("config record: %v", err)
	}
	if err := validateAgainst(expansionsSchemaURL, expsPlain); err != nil {
		return state{}, corrupt("expansions record: %v", err)
	}

	var cfg config.Configuration
	if err := json.Unmarshal(cfgPlain, &cfg); err != nil {
		return state{}, corrupt("config record: %v", err)
	}
	var rec expansionsRecord
	if err := json.Unmarshal(expsPlain, &rec); err != nil {
		return state{}, corrupt("expansions record: %v", err)
	}

	st := state{cfg: cfg, exps: make(map[string]Expansion, len(rec.Expansions))}
	for _, e := range rec.Expansions {
		st.exps[e.ID] = e
	}
	if len(st.exps) != len(rec.Expansions) {
		return state{}, corrupt("duplicate expansion ids")
	}
	if err := st.validate(); err != nil {
		return state{}, corrupt("%v", err)
	}
	return st, nil
}

func encodeRecords(st state) (cfgPlain, expsPlain []byte, err error) {
	cfgPlain, err = json.Marshal(st.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	expsPlain, err = json.Marshal(expansionsRecord{Version: 1, Expansions: st.sorted()})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal expansions: %w", err)
	}
	return cfgPlain, expsPlain, nil
}

// InitDefaults creates a fresh store holding the default configuration and
// no expansions. An existing seed file is reused; an existing store file is
// never replaced.
func (s *Store) InitDefaults() (Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	lock, err := acquireFileLock(s.lockPath(), lockTimeout)
	if err != nil {
		return Snapshot{}, err
	}
	defer lock.release()

	if _, err := os.Stat(s.Path()); err == nil {
		return Snapshot{}, fmt.Errorf("store already exists at %s", s.Path())
	}

	seed, err := seal.LoadSeed(s.seedPath())
	if errors.Is(err, seal.ErrKeyMissing) {
		os.Remove(s.seedPath())
		seed, err = seal.CreateSeed(s.seedPath())
	}
	if err != nil {
		return Snapshot{}, err
	}
	defer seal.Wipe(seed)

	binding := seal.PreferredBinding()
	key, err := seal.MachineKey(seed, binding)
	if err != nil {
		return Snapshot{}, err
	}

	st := state{cfg: config.Default(), exps: make(map[string]Expansion)}

	s.mu.Lock()
	s.key = key
	s.binding = binding
	s.mu.Unlock()

	if err := s.persist(st); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.st = st
	s.loaded = true
	s.mu.Unlock()

	snap := s.Snapshot()
	s.notify(snap)
	return snap, nil
}

// persist writes st. Caller holds writeMu and the file lock.
func (s *Store) persist(st state) error {
	s.mu.RLock()
	key, binding := s.key, s.binding
	s.mu.RUnlock()

	cfgPlain, expsPlain, err := encodeRecords(st)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersistFailed, err)
	}
	defer seal.Wipe(cfgPlain)
	defer seal.Wipe(expsPlain)

	// Never write what Load would reject.
	if _, err := decodeRecords(cfgPlain, expsPlain); err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersistFailed, err)
	}

	env := envelope{Format: envelopeFormat, Version: envelopeVersion, Binding: binding}
	if env.Config, err = seal.Seal(key, aadConfig, cfgPlain); err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersistFailed, err)
	}
	if env.Expansions, err = seal.Seal(key, aadExpansions, expsPlain); err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersistFailed, err)
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersistFailed, err)
	}

	verify := func(tmpPath string) error {
		written, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}
		if s.verifyHook != nil {
			if err := s.verifyHook(written); err != nil {
				return err
			}
		}
		var check envelope
		if err := json.Unmarshal(written, &check); err != nil {
			return err
		}
		got, err := openRecords(key, check.Config, check.Expansions)
		if err != nil {
			return err
		}
		gotCfg, gotExps, err := encodeRecords(got)
		if err != nil {
			return err
		}
		if !bytes.Equal(gotCfg, cfgPlain) || !bytes.Equal(gotExps, expsPlain) {
			return errors.New("re-decrypted content differs")
		}
		return nil
	}

	if err := config.WriteFileAtomic(s.Path(), data, 0600, verify); err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersistFailed, err)
	}

	s.mu.Lock()
	s.lastDigest = sha256.Sum256(data)
	s.mu.Unlock()
	s.writes.Add(1)
	logging.Debugf("store written (%d expansions)", len(st.exps))
	return nil
}

// Snapshot returns a copy of the current content.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Config: s.st.cfg.Clone(), Expansions: s.st.sorted()}
}

// Config returns a copy of the live configuration.
func (s *Store) Config() config.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.cfg.Clone()
}

// Get returns the expansion with id.
func (s *Store) Get(id string) (Expansion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.st.exps[id]
	if !ok {
		return Expansion{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// FindShortcut returns the expansion whose shortcut matches after
// normalization.
func (s *Store) FindShortcut(shortcut string) (Expansion, error) {
	n, err := NormalizeShortcut(shortcut)
	if err != nil {
		return Expansion{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.st.exps {
		if e.Shortcut == n {
			return e, nil
		}
	}
	return Expansion{}, fmt.Errorf("%w: %s", ErrNotFound, n)
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) notify(snap Snapshot) {
	s.subsMu.Lock()
	subs := append([]func(Snapshot){}, s.subs...)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// Close stops the background writer and flushes pending usage.
func (s *Store) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		err = s.Flush()
	})
	return err
}
