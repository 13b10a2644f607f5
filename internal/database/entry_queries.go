package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fairwayclub/golfpoolserver/internal/models"
)

// UpsertEntry stores or updates a user's entry for a tournament as mirrored
// from the pool backend. Pick slots are stored positionally.
func (db *DB) UpsertEntry(ctx context.Context, entry *models.Entry) error {
	entry.NormalizePicks()

	pickIDs, err := json.Marshal(entry.PickIDs)
	if err != nil {
		return fmt.Errorf("failed to encode pick ids: %w", err)
	}

	query := `
		INSERT INTO entries (user_id, tournament_id, pick_ids, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, tournament_id)
		DO UPDATE SET
			pick_ids = EXCLUDED.pick_ids,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, submitted_at, updated_at
	`

	err = db.QueryRowContext(ctx, query,
		entry.UserID,
		entry.TournamentID,
		pickIDs,
		entry.Status,
	).Scan(&entry.ID, &entry.SubmittedAt, &entry.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}

	return nil
}

// GetEntry retrieves a user's entry for a tournament
func (db *DB) GetEntry(ctx context.Context, userID, tournamentID int64) (*models.Entry, error) {
	query := `
		SELECT id, user_id, tournament_id, pick_ids, status, submitted_at, updated_at
		FROM entries
		WHERE user_id = $1 AND tournament_id = $2
	`

	entry := &models.Entry{}
	var pickIDs []byte
	err := db.QueryRowContext(ctx, query, userID, tournamentID).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.TournamentID,
		&pickIDs,
		&entry.Status,
		&entry.SubmittedAt,
		&entry.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	if err := json.Unmarshal(pickIDs, &entry.PickIDs); err != nil {
		return nil, fmt.Errorf("failed to decode pick ids: %w", err)
	}
	entry.NormalizePicks()

	return entry, nil
}

// ListEntriesForTournament retrieves all entries for a tournament
func (db *DB) ListEntriesForTournament(ctx context.Context, tournamentID int64) ([]*models.Entry, error) {
	query := `
		SELECT id, user_id, tournament_id, pick_ids, status, submitted_at, updated_at
		FROM entries
		WHERE tournament_id = $1
		ORDER BY submitted_at
	`

	rows, err := db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry := &models.Entry{}
		var pickIDs []byte
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.TournamentID,
			&pickIDs,
			&entry.Status,
			&entry.SubmittedAt,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal(pickIDs, &entry.PickIDs); err != nil {
			return nil, fmt.Errorf("failed to decode pick ids: %w", err)
		}
		entry.NormalizePicks()
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

// DeleteEntry removes a user's entry for a tournament
func (db *DB) DeleteEntry(ctx context.Context, userID, tournamentID int64) error {
	query := `DELETE FROM entries WHERE user_id = $1 AND tournament_id = $2`

	result, err := db.ExecContext(ctx, query, userID, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("entry not found")
	}

	return nil
}
