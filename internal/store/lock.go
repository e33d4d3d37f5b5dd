package store

import (
	"database/sql"
	"fmt"
	"time"
)

// LockStore provides named advisory locks backed by the database, so
// mutual exclusion holds across processes sharing the same file (the
// web server's in-process scheduler and the one-shot tick CLI).
type LockStore struct {
	db *sql.DB
}

func NewLockStore(db *sql.DB) *LockStore {
	return &LockStore{db: db}
}

// Acquire takes the named lock if it is free or its holder is stale
// (acquired more than ttl ago, e.g. a crashed process). Returns false
// when another holder still has it.
func (s *LockStore) Acquire(name string, now time.Time, ttl time.Duration) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO dispatch_locks (name, acquired_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET acquired_at = excluded.acquired_at
		 WHERE dispatch_locks.acquired_at <= ?`,
		name, now.UTC(), now.Add(-ttl).UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Release frees the named lock. Releasing a lock that is not held is
// not an error.
func (s *LockStore) Release(name string) error {
	_, err := s.db.Exec(`DELETE FROM dispatch_locks WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}
