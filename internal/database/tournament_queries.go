package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fairwayclub/golfpoolserver/internal/models"
)

// UpsertTournament stores or refreshes a tournament fetched from the pool backend
func (db *DB) UpsertTournament(ctx context.Context, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (id, name, course, status, starts_at, ends_at, draft_closes_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			course = EXCLUDED.course,
			status = EXCLUDED.status,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			draft_closes_at = EXCLUDED.draft_closes_at,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := db.QueryRowContext(ctx, query,
		tournament.ID,
		tournament.Name,
		tournament.Course,
		tournament.Status,
		tournament.StartsAt,
		tournament.EndsAt,
		tournament.DraftClosesAt,
	).Scan(&tournament.CreatedAt, &tournament.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert tournament: %w", err)
	}

	return nil
}

// GetTournament retrieves a cached tournament by ID
func (db *DB) GetTournament(ctx context.Context, tournamentID int64) (*models.Tournament, error) {
	query := `
		SELECT id, name, course, status, starts_at, ends_at, draft_closes_at, created_at, updated_at
		FROM tournaments
		WHERE id = $1
	`

	tournament := &models.Tournament{}
	err := db.QueryRowContext(ctx, query, tournamentID).Scan(
		&tournament.ID,
		&tournament.Name,
		&tournament.Course,
		&tournament.Status,
		&tournament.StartsAt,
		&tournament.EndsAt,
		&tournament.DraftClosesAt,
		&tournament.CreatedAt,
		&tournament.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tournament not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	return tournament, nil
}

// ListTournaments retrieves all cached tournaments ordered by start time
func (db *DB) ListTournaments(ctx context.Context) ([]*models.Tournament, error) {
	query := `
		SELECT id, name, course, status, starts_at, ends_at, draft_closes_at, created_at, updated_at
		FROM tournaments
		ORDER BY starts_at
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		tournament := &models.Tournament{}
		err := rows.Scan(
			&tournament.ID,
			&tournament.Name,
			&tournament.Course,
			&tournament.Status,
			&tournament.StartsAt,
			&tournament.EndsAt,
			&tournament.DraftClosesAt,
			&tournament.CreatedAt,
			&tournament.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, tournament)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournaments: %w", err)
	}

	return tournaments, nil
}

// ReplaceTournamentField replaces the cached field for a tournament wholesale.
// The field is always written as a unit so a partial fetch never leaves a
// half-updated roster behind.
func (db *DB) ReplaceTournamentField(ctx context.Context, tournamentID int64, golfers []*models.Golfer) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := `DELETE FROM field_golfers WHERE tournament_id = $1`
	if _, err := tx.ExecContext(ctx, deleteQuery, tournamentID); err != nil {
		return fmt.Errorf("failed to clear tournament field: %w", err)
	}

	insertQuery := `
		INSERT INTO field_golfers (tournament_id, golfer_id, name, country, world_rank)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, golfer := range golfers {
		if _, err := tx.ExecContext(ctx, insertQuery,
			tournamentID,
			golfer.ID,
			golfer.Name,
			golfer.Country,
			golfer.WorldRank,
		); err != nil {
			return fmt.Errorf("failed to insert field golfer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTournamentField retrieves the cached field for a tournament
func (db *DB) GetTournamentField(ctx context.Context, tournamentID int64) ([]*models.Golfer, error) {
	query := `
		SELECT golfer_id, name, country, world_rank
		FROM field_golfers
		WHERE tournament_id = $1
		ORDER BY world_rank, golfer_id
	`

	rows, err := db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament field: %w", err)
	}
	defer rows.Close()

	var golfers []*models.Golfer
	for rows.Next() {
		golfer := &models.Golfer{}
		if err := rows.Scan(&golfer.ID, &golfer.Name, &golfer.Country, &golfer.WorldRank); err != nil {
			return nil, fmt.Errorf("failed to scan field golfer: %w", err)
		}
		golfers = append(golfers, golfer)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament field: %w", err)
	}

	return golfers, nil
}
