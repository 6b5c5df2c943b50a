package store

import (
	"crypto/sha256"
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobersnip/TextShortcutter/internal/config"
)

// commit applies fn to a copy of the state, writes it, and only then makes
// it live. Usage recorded while the write was in flight is carried over.
func (s *Store) commit(fn func(*state) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	lock, err := acquireFileLock(s.lockPath(), lockTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersistFailed, err)
	}
	defer lock.release()

	return s.commitLocked(fn)
}

// commitLocked is commit for callers already holding writeMu and the file
// lock.
func (s *Store) commitLocked(fn func(*state) error) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		return ErrNotLoaded
	}

	if err := s.syncFromDiskLocked(); err != nil {
		return err
	}

	s.mu.RLock()
	next := s.st.clone()
	taken := maps.Clone(s.pending)
	s.mu.RUnlock()

	if err := fn(&next); err != nil {
		return err
	}
	if err := s.persist(next); err != nil {
		return err
	}

	s.mu.Lock()
	for id, d := range taken {
		cur, ok := s.pending[id]
		if !ok {
			continue
		}
		cur.count -= d.count
		if cur.count <= 0 {
			delete(s.pending, id)
		} else {
			s.pending[id] = cur
		}
	}
	for id, d := range s.pending {
		e, ok := next.exps[id]
		if !ok {
			delete(s.pending, id)
			continue
		}
		applyDelta(&e, useDelta{count: d.count, last: d.last})
		next.exps[id] = e
	}
	s.st = next
	leftover := len(s.pending) > 0
	s.mu.Unlock()

	if leftover {
		s.schedule()
	}
	s.notify(s.Snapshot())
	return nil
}

// syncFromDiskLocked reloads when another process changed the file since
// this process last read or wrote it.
func (s *Store) syncFromDiskLocked() error {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStorePersistFailed, err)
	}
	digest := sha256.Sum256(data)

	s.mu.RLock()
	same := digest == s.lastDigest
	s.mu.RUnlock()
	if same {
		return nil
	}
	return s.loadLocked()
}

func (s *Store) now() time.Time {
	return s.opts.Now().UTC().Round(0)
}

// Add creates an expansion.
func (s *Store) Add(shortcut, body, description string) (Expansion, error) {
	sc, err := NormalizeShortcut(shortcut)
	if err != nil {
		return Expansion{}, err
	}

	e := Expansion{
		ID:          uuid.NewString(),
		Shortcut:    sc,
		Body:        body,
		Description: strings.TrimSpace(description),
		Enabled:     true,
		CreatedAt:   s.now(),
	}

	err = s.commit(func(st *state) error {
		if err := checkBody(body, st.cfg); err != nil {
			return err
		}
		if _, exists := st.byShortcut()[sc]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateShortcut, sc)
		}
		if len(st.exps) >= st.cfg.MaxExpansions {
			return fmt.Errorf("%w (%d)", ErrLimitReached, st.cfg.MaxExpansions)
		}
		st.exps[e.ID] = e
		return nil
	})
	if err != nil {
		return Expansion{}, err
	}
	return e, nil
}

// Edit applies p to the expansion with id.
func (s *Store) Edit(id string, p Patch) (Expansion, error) {
	var out Expansion
	err := s.commit(func(st *state) error {
		e, ok := st.exps[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if p.Shortcut != nil {
			sc, err := NormalizeShortcut(*p.Shortcut)
			if err != nil {
				return err
			}
			if other, exists := st.byShortcut()[sc]; exists && other != id {
				return fmt.Errorf("%w: %s", ErrDuplicateShortcut, sc)
			}
			e.Shortcut = sc
		}
		if p.Body != nil {
			if err := checkBody(*p.Body, st.cfg); err != nil {
				return err
			}
			e.Body = *p.Body
		}
		if p.Description != nil {
			e.Description = strings.TrimSpace(*p.Description)
		}
		if p.Enabled != nil {
			e.Enabled = *p.Enabled
		}
		st.exps[id] = e
		out = e
		return nil
	})
	return out, err
}

// SetEnabled shows or hides an expansion in the selection popup.
func (s *Store) SetEnabled(id string, enabled bool) (Expansion, error) {
	return s.Edit(id, Patch{Enabled: &enabled})
}

// Delete removes the expansion with id.
func (s *Store) Delete(id string) error {
	return s.commit(func(st *state) error {
		if _, ok := st.exps[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		delete(st.exps, id)
		return nil
	})
}

// UpdateConfig applies fn to a copy of the configuration, validates it and
// persists it.
func (s *Store) UpdateConfig(fn func(*config.Configuration) error) (config.Configuration, error) {
	var out config.Configuration
	err := s.commit(func(st *state) error {
		cfg := st.cfg.Clone()
		if err := fn(&cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if len(st.exps) > cfg.MaxExpansions {
			return &config.InvalidConfigError{
				Field:   "max_expansions",
				Message: fmt.Sprintf("store already holds %d expansions", len(st.exps)),
			}
		}
		if !cfg.AllowEmptyBody {
			for _, e := range st.exps {
				if e.Body == "" {
					return &config.InvalidConfigError{
						Field:   "allow_empty_body",
						Message: fmt.Sprintf("expansion %q has an empty body", e.Shortcut),
					}
				}
			}
		}
		st.cfg = cfg
		out = cfg.Clone()
		return nil
	})
	return out, err
}
