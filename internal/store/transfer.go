package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bobersnip/TextShortcutter/internal/config"
	"github.com/bobersnip/TextShortcutter/internal/seal"
)

const (
	exportFormat  = "textshortcutter-export"
	exportVersion = 1
)

var aadExport = []byte("textshortcutter/v1/export")

// ConflictPolicy decides what Import does with a shortcut that already exists.
type ConflictPolicy string

const (
	PolicyNone      ConflictPolicy = ""
	PolicySkip      ConflictPolicy = "skip"
	PolicyOverwrite ConflictPolicy = "overwrite"
	PolicyRename    ConflictPolicy = "rename"
)

// ParsePolicy accepts "", "none", "skip", "overwrite" and "rename".
func ParsePolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(s); p {
	case PolicyNone, PolicySkip, PolicyOverwrite, PolicyRename:
		return p, nil
	case "none":
		return PolicyNone, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want skip, overwrite or rename)", s)
	}
}

// ImportOptions controls Import.
type ImportOptions struct {
	Policy ConflictPolicy
	// WithConfig also replaces the live configuration with the exported one.
	WithConfig bool
}

// ImportResult counts what Import did.
type ImportResult struct {
	Added       int
	Overwritten int
	Skipped     int
	Renamed     int
	Config      bool
}

type exportFile struct {
	Format  string         `json:"format"`
	Version int            `json:"version"`
	KDF     seal.KDFParams `json:"kdf"`
	Payload []byte         `json:"payload"`
}

type exportPayload struct {
	Config     json.RawMessage `json:"config"`
	Expansions json.RawMessage `json:"expansions"`
}

// Export writes a passphrase-encrypted, machine-independent snapshot of the
// store to path. Other writers wait until it finishes; reads do not.
func (s *Store) Export(path string, passphrase []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	lock, err := acquireFileLock(s.lockPath(), lockTimeout)
	if err != nil {
		return 0, err
	}
	defer lock.release()

	s.mu.RLock()
	loaded := s.loaded
	st := s.st.clone()
	s.mu.RUnlock()
	if !loaded {
		return 0, ErrNotLoaded
	}

	cfgPlain, expsPlain, err := encodeRecords(st)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(exportPayload{Config: cfgPlain, Expansions: expsPlain})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal export: %w", err)
	}
	defer seal.Wipe(payload)

	params, err := seal.NewKDFParams()
	if err != nil {
		return 0, err
	}
	key, err := seal.PassphraseKey(passphrase, params)
	if err != nil {
		return 0, err
	}
	defer seal.Wipe(key)

	sealed, err := seal.Seal(key, aadExport, payload)
	if err != nil {
		return 0, err
	}

	data, err := json.MarshalIndent(exportFile{
		Format:  exportFormat,
		Version: exportVersion,
		KDF:     params,
		Payload: sealed,
	}, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal export: %w", err)
	}

	verify := func(tmpPath string) error {
		_, err := readExport(tmpPath, passphrase)
		return err
	}
	if err := config.WriteFileAtomic(path, data, 0600, verify); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return len(st.exps), nil
}

func readExport(path string, passphrase []byte) (state, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return state{}, fmt.Errorf("failed to read export: %w", err)
	}

	var f exportFile
	if err := json.Unmarshal(data, &f); err != nil {
		return state{}, fmt.Errorf("not an export file: %w", err)
	}
	if f.Format != exportFormat || f.Version != exportVersion {
		return state{}, fmt.Errorf("unsupported export format %q version %d", f.Format, f.Version)
	}

	key, err := seal.PassphraseKey(passphrase, f.KDF)
	if err != nil {
		return state{}, err
	}
	defer seal.Wipe(key)

	plain, err := seal.Open(key, aadExport, f.Payload)
	if err != nil {
		return state{}, fmt.Errorf("wrong passphrase or damaged export: %w", err)
	}
	defer seal.Wipe(plain)

	var p exportPayload
	if err := json.Unmarshal(plain, &p); err != nil {
		return state{}, fmt.Errorf("damaged export payload: %w", err)
	}
	return decodeRecords(p.Config, p.Expansions)
}

// Import merges an export file into the store under opts.Policy. It is all
// or nothing: on any error, including a conflict under PolicyNone, nothing
// changes.
func (s *Store) Import(path string, passphrase []byte, opts ImportOptions) (ImportResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	lock, err := acquireFileLock(s.lockPath(), lockTimeout)
	if err != nil {
		return ImportResult{}, err
	}
	defer lock.release()

	incoming, err := readExport(path, passphrase)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	err = s.commitLocked(func(st *state) error {
		var mergeErr error
		res, mergeErr = merge(st, incoming, opts)
		return mergeErr
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

func merge(st *state, incoming state, opts ImportOptions) (ImportResult, error) {
	var res ImportResult
	if opts.WithConfig {
		st.cfg = incoming.cfg.Clone()
		res.Config = true
	}

	shortcuts := st.byShortcut()
	var conflicts []string

	for _, inc := range incoming.sorted() {
		existingID, clash := shortcuts[inc.Shortcut]
		if clash {
			switch opts.Policy {
			case PolicyNone:
				conflicts = append(conflicts, inc.Shortcut)
				continue
			case PolicySkip:
				res.Skipped++
				continue
			case PolicyOverwrite:
				delete(st.exps, existingID)
				res.Overwritten++
			case PolicyRename:
				inc.Shortcut = freeShortcut(inc.Shortcut, shortcuts)
				res.Renamed++
			}
		} else {
			res.Added++
		}

		if _, taken := st.exps[inc.ID]; taken {
			inc.ID = uuid.NewString()
		}
		st.exps[inc.ID] = inc
		shortcuts[inc.Shortcut] = inc.ID
	}

	if len(conflicts) > 0 {
		return ImportResult{}, &ImportConflictError{Shortcuts: conflicts}
	}
	if err := st.validate(); err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

// freeShortcut appends -2, -3, ... until the shortcut is unused.
func freeShortcut(base string, used map[string]string) string {
	for n := 2; ; n++ {
		suffix := "-" + strconv.Itoa(n)
		stem := base
		for utf8.RuneCountInString(stem)+len(suffix) > MaxShortcutLen {
			_, size := utf8.DecodeLastRuneInString(stem)
			stem = stem[:len(stem)-size]
		}
		if _, ok := used[stem+suffix]; !ok {
			return stem + suffix
		}
	}
}
