package models

import "time"

// EntrySlotCount is the number of pick slots on an entry. Slot order is
// significant: slot index is pick priority.
const EntrySlotCount = 8

// EntryStatus represents the lifecycle state of a submitted entry
type EntryStatus string

const (
	EntryStatusSubmitted EntryStatus = "submitted"
	EntryStatusWithdrawn EntryStatus = "withdrawn"
)

// Entry represents a user's submitted draft entry for a tournament.
// PickIDs always has exactly EntrySlotCount elements; zero means an
// empty slot.
type Entry struct {
	ID           int64       `json:"id"`
	UserID       int64       `json:"user_id"`
	TournamentID int64       `json:"tournament_id"`
	PickIDs      []int64     `json:"pick_ids"`
	Status       EntryStatus `json:"status"`
	SubmittedAt  time.Time   `json:"submitted_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// PickCount returns the number of non-empty pick slots
func (e *Entry) PickCount() int {
	count := 0
	for _, id := range e.PickIDs {
		if id != 0 {
			count++
		}
	}
	return count
}

// NormalizePicks pads or truncates PickIDs so it has exactly
// EntrySlotCount elements, preserving slot positions.
func (e *Entry) NormalizePicks() {
	picks := make([]int64, EntrySlotCount)
	copy(picks, e.PickIDs)
	e.PickIDs = picks
}
