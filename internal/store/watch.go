package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bobersnip/TextShortcutter/internal/logging"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads the store when another process (typically the CLI) replaces
// the store file, and notifies subscribers. It returns when ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Renames replace the file, so watch the directory, not the file.
	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	target := filepath.Clean(s.Path())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, s.reloadIfChanged)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warnf("store watcher: %v", err)
		}
	}
}

// reloadIfChanged reloads unless the file is the one this process last read
// or wrote. A damaged file keeps the in-memory state.
func (s *Store) reloadIfChanged() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := os.ReadFile(s.Path())
	if err != nil {
		return
	}
	digest := sha256.Sum256(data)

	s.mu.RLock()
	same := digest == s.lastDigest
	s.mu.RUnlock()
	if same {
		return
	}

	if err := s.loadLocked(); err != nil {
		logging.Warnf("ignoring external store change: %v", err)
		return
	}
	logging.Infof("store reloaded after external change")
	s.notify(s.Snapshot())
}
