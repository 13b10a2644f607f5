package models

import "time"

// TournamentStatus represents the lifecycle state of a tournament
type TournamentStatus string

const (
	TournamentStatusUpcoming TournamentStatus = "upcoming"
	TournamentStatusLive     TournamentStatus = "live"
	TournamentStatusComplete TournamentStatus = "complete"
)

// Tournament represents a tournament on the pool schedule
type Tournament struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Course        string           `json:"course"`
	Status        TournamentStatus `json:"status"`
	StartsAt      time.Time        `json:"starts_at"`
	EndsAt        time.Time        `json:"ends_at"`
	DraftClosesAt time.Time        `json:"draft_closes_at"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// IsDraftOpen reports whether picks may still be submitted for this tournament
func (t *Tournament) IsDraftOpen() bool {
	return t.Status != TournamentStatusComplete && time.Now().Before(t.DraftClosesAt)
}

// Golfer represents a golfer in a tournament field.
//
// Only ID and Name are load-bearing: every other field is display data that
// must always be refreshed from the live tournament field, never trusted
// from a cached copy.
type Golfer struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Country   string `json:"country,omitempty"`
	WorldRank int    `json:"world_rank,omitempty"`
}

// FieldGolfer represents a golfer row cached for a tournament field
type FieldGolfer struct {
	TournamentID int64     `json:"tournament_id"`
	Golfer       Golfer    `json:"golfer"`
	UpdatedAt    time.Time `json:"updated_at"`
}
