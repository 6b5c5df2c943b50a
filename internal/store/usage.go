package store

import (
	"fmt"
	"time"

	"github.com/bobersnip/TextShortcutter/internal/logging"
)

func applyDelta(e *Expansion, d useDelta) {
	e.UseCount += d.count
	if d.last.After(e.LastUsedAt) {
		e.LastUsedAt = d.last
	}
}

// RecordUse bumps the usage counter of id in memory at once and schedules a
// debounced write. Calls within one debounce window share a single write.
func (s *Store) RecordUse(id string) error {
	now := s.now()

	s.mu.Lock()
	e, ok := s.st.exps[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	d := useDelta{count: 1, last: now}
	applyDelta(&e, d)
	s.st.exps[id] = e

	p := s.pending[id]
	p.count++
	p.last = now
	s.pending[id] = p
	s.mu.Unlock()

	s.schedule()
	s.notify(s.Snapshot())
	return nil
}

// Pending reports how many uses are not yet on disk.
func (s *Store) Pending() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, d := range s.pending {
		n += d.count
	}
	return n
}

func (s *Store) schedule() {
	select {
	case s.kick <- struct{}{}:
	default:
		// A write is already scheduled
	}
}

// persistLoop turns kicks into at most one write per debounce window.
func (s *Store) persistLoop() {
	defer s.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-s.kick:
			if timer == nil {
				timer = time.NewTimer(s.opts.Debounce)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			if err := s.flushPending(); err != nil {
				logging.Warnf("deferred store write failed: %v", err)
				if s.opts.OnPersistError != nil {
					s.opts.OnPersistError(err)
				}
				// Retry on the next window.
				timer = time.NewTimer(s.opts.Debounce)
				fire = timer.C
			}

		case <-s.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (s *Store) flushPending() error {
	if s.Pending() == 0 {
		return nil
	}
	return s.commit(func(*state) error { return nil })
}

// Flush writes pending usage now. Called on shutdown.
func (s *Store) Flush() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		return nil
	}
	return s.flushPending()
}
