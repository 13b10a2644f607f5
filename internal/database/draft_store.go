package database

import (
	"context"
	"database/sql"
	"fmt"
)

// DraftStore is a per-user key-value view over the draft_records table.
// It implements draftcache.Store, so each user's draft cache persists
// through it.
type DraftStore struct {
	db     *DB
	userID int64
}

// DraftStore returns the draft record store scoped to a user
func (db *DB) DraftStore(userID int64) *DraftStore {
	return &DraftStore{db: db, userID: userID}
}

// Get returns the stored value for key, with false when no row exists
func (s *DraftStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM draft_records WHERE user_id = $1 AND key = $2`

	var value string
	err := s.db.QueryRowContext(ctx, query, s.userID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read draft record: %w", err)
	}

	return value, true, nil
}

// Set writes value under key, replacing any prior value
func (s *DraftStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO draft_records (user_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, s.userID, key, value); err != nil {
		return fmt.Errorf("failed to write draft record: %w", err)
	}

	return nil
}

// Remove deletes the value under key; removing a missing key is a no-op
func (s *DraftStore) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM draft_records WHERE user_id = $1 AND key = $2`

	if _, err := s.db.ExecContext(ctx, query, s.userID, key); err != nil {
		return fmt.Errorf("failed to delete draft record: %w", err)
	}

	return nil
}
