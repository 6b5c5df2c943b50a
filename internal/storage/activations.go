package storage

import (
	"fmt"
	"time"

	"github.com/bobersnip/TextShortcutter/internal/logging"
)

// RecordActivations appends events in one transaction.
func (s *SQLiteStorage) RecordActivations(events []Activation) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.db == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO activations (ts_ms, outcome, app, shortcut) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare audit insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.Timestamp.UnixMilli(), string(e.Outcome), e.App, e.Shortcut); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record activation: %w", err)
		}
	}
	return tx.Commit()
}

// Counts aggregates activations since a given time by outcome.
func (s *SQLiteStorage) Counts(since time.Time) (map[Outcome]int64, error) {
	counts := map[Outcome]int64{}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.db == nil {
		return counts, nil
	}

	rows, err := s.db.Query(`
		SELECT outcome, COUNT(*) FROM activations
		WHERE ts_ms >= ?
		GROUP BY outcome
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to count activations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			logging.Warnf("failed to scan activation count: %v", err)
			continue
		}
		counts[Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

// Recent returns up to limit activations, newest first.
func (s *SQLiteStorage) Recent(limit int) ([]Activation, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.db == nil {
		return []Activation{}, nil
	}

	rows, err := s.db.Query(`
		SELECT id, ts_ms, outcome, app, shortcut FROM activations
		ORDER BY ts_ms DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activations: %w", err)
	}
	defer rows.Close()

	out := []Activation{}
	for rows.Next() {
		var a Activation
		var ms int64
		var outcome string
		if err := rows.Scan(&a.ID, &ms, &outcome, &a.App, &a.Shortcut); err != nil {
			logging.Warnf("failed to scan activation row: %v", err)
			continue
		}
		a.Timestamp = time.UnixMilli(ms).UTC()
		a.Outcome = Outcome(outcome)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Cleanup removes activations older than retention.
func (s *SQLiteStorage) Cleanup(retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.db == nil {
		return 0, nil
	}

	cutoff := time.Now().Add(-retention).UnixMilli()
	res, err := s.db.Exec("DELETE FROM activations WHERE ts_ms < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up activations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Clear removes every activation.
func (s *SQLiteStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("DELETE FROM activations"); err != nil {
		return fmt.Errorf("failed to clear activations: %w", err)
	}
	return nil
}
