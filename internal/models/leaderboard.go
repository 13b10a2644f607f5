package models

import "time"

// LeaderboardRow represents one golfer's position on a live tournament
// leaderboard as reported by the pool backend.
type LeaderboardRow struct {
	Position   int    `json:"position"`
	GolferID   int64  `json:"golfer_id"`
	GolferName string `json:"golfer_name"`
	Total      int    `json:"total"` // Strokes relative to par, negative is under
	Today      int    `json:"today"`
	Thru       int    `json:"thru"` // Holes completed in the current round, 18 = finished
	Round      int    `json:"round"`
	Status     string `json:"status"` // 'active', 'cut', 'wd'
}

// Leaderboard is a full leaderboard snapshot for a tournament
type Leaderboard struct {
	TournamentID int64            `json:"tournament_id"`
	Rows         []LeaderboardRow `json:"rows"`
	FetchedAt    time.Time        `json:"fetched_at"`
}

// StandingsRow represents one pool member's season standing
type StandingsRow struct {
	Rank       int    `json:"rank"`
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	Points     int    `json:"points"`
	Wins       int    `json:"wins"`
	Played     int    `json:"played"`
}
