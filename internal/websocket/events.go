// Package websocket pushes live leaderboard updates to connected
// dashboard clients. A Hub tracks per-tournament subscribers; a Poller
// refetches the leaderboard on an interval and broadcasts changes.
package websocket

import (
	"time"

	"github.com/fairwayclub/golfpoolserver/internal/models"
)

// EventType identifies the kind of event pushed to clients
type EventType string

const (
	// EventLeaderboardUpdate carries a fresh leaderboard snapshot
	EventLeaderboardUpdate EventType = "leaderboard_update"

	// EventTournamentStatus signals a tournament lifecycle change
	EventTournamentStatus EventType = "tournament_status"
)

// Event is the JSON envelope sent over the socket
type Event struct {
	Type         EventType               `json:"type"`
	TournamentID int64                   `json:"tournamentId"`
	Leaderboard  *models.Leaderboard     `json:"leaderboard,omitempty"`
	Status       models.TournamentStatus `json:"status,omitempty"`
	SentAt       time.Time               `json:"sentAt"`
}

// NewLeaderboardEvent builds a leaderboard_update event
func NewLeaderboardEvent(leaderboard *models.Leaderboard) *Event {
	return &Event{
		Type:         EventLeaderboardUpdate,
		TournamentID: leaderboard.TournamentID,
		Leaderboard:  leaderboard,
		SentAt:       time.Now(),
	}
}

// NewStatusEvent builds a tournament_status event
func NewStatusEvent(tournamentID int64, status models.TournamentStatus) *Event {
	return &Event{
		Type:         EventTournamentStatus,
		TournamentID: tournamentID,
		Status:       status,
		SentAt:       time.Now(),
	}
}
