// Package draftcache persists a user's in-progress, unsubmitted draft
// selections so a page reload or a later visit does not lose picks.
//
// Exactly one record exists per store at a time, keyed to a single
// tournament. A record is only ever surfaced after it has been checked
// against the live tournament field: golfers who have dropped out of the
// field are invalidated slot by slot, and a record whose every slot has
// become invalid is treated the same as no record at all.
//
// No operation in this package returns an error. Storage failures and
// corrupted payloads are logged and translated into "no draft found":
// the cache is a convenience/recovery mechanism and must fail toward
// "start fresh", never toward blocking the caller.
package draftcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/models"
)

const (
	// StorageKey is the fixed key the singleton record lives under
	StorageKey = "draft_selections"

	// SlotCount is the number of pick slots in a selection. Slot order is
	// significant: slot index is pick priority.
	SlotCount = models.EntrySlotCount

	// TTL is how long a saved record stays restorable
	TTL = 48 * time.Hour
)

// Record is the persisted draft selection. Timestamps are milliseconds
// since epoch and selections always holds exactly SlotCount entries,
// with null marking an empty slot. The layout is shared with prior
// sessions, so field names and representation must stay stable.
type Record struct {
	TournamentID int64            `json:"tournamentId"`
	SavedAt      int64            `json:"savedAt"`
	ExpiresAt    int64            `json:"expiresAt"`
	Selections   []*models.Golfer `json:"selections"`
}

// Cache owns saving, loading, validating, and expiring the draft record
type Cache struct {
	store  Store
	clock  clockwork.Clock
	logger *zap.Logger
}

// New creates a draft cache over the given store
func New(store Store, clock clockwork.Clock, logger *zap.Logger) *Cache {
	return &Cache{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Save overwrites the stored record with the given selections. A zero
// tournamentID is a silent no-op: nothing is written. Storage failures
// are logged and swallowed; the caller's in-memory state is unaffected
// by a failed persist.
func (c *Cache) Save(ctx context.Context, tournamentID int64, selections []*models.Golfer) {
	if tournamentID == 0 {
		return
	}

	now := c.clock.Now()
	record := Record{
		TournamentID: tournamentID,
		SavedAt:      now.UnixMilli(),
		ExpiresAt:    now.Add(TTL).UnixMilli(),
		Selections:   normalizeSlots(selections),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		c.logger.Warn("failed to serialize draft selections",
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
		return
	}

	if err := c.store.Set(ctx, StorageKey, string(payload)); err != nil {
		c.logger.Warn("failed to persist draft selections",
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
	}
}

// Load returns the stored selections validated against the live
// tournament field, or nil when no restorable draft exists.
//
// A record for a different tournament, an expired record, a corrupted
// payload, and a record whose every slot fails field validation are all
// destroyed and reported as nil. Golfers that survive validation are
// replaced with their live field objects: only the cached id is
// trusted, every other golfer field comes from availableGolfers.
//
// An empty availableGolfers list means the field has not loaded yet:
// the record is left intact and nil is returned, so a slow field fetch
// never destroys a good draft.
func (c *Cache) Load(ctx context.Context, tournamentID int64, availableGolfers []*models.Golfer) []*models.Golfer {
	payload, ok, err := c.store.Get(ctx, StorageKey)
	if err != nil {
		c.logger.Warn("failed to read draft selections", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var record Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		c.logger.Warn("discarding corrupted draft record", zap.Error(err))
		c.destroy(ctx)
		return nil
	}

	if record.TournamentID != tournamentID {
		c.logger.Debug("discarding draft record for a different tournament",
			zap.Int64("stored_tournament_id", record.TournamentID),
			zap.Int64("tournament_id", tournamentID),
		)
		c.destroy(ctx)
		return nil
	}

	if c.clock.Now().UnixMilli() > record.ExpiresAt {
		c.logger.Debug("discarding expired draft record",
			zap.Int64("tournament_id", tournamentID),
			zap.Int64("expires_at", record.ExpiresAt),
		)
		c.destroy(ctx)
		return nil
	}

	if len(availableGolfers) == 0 {
		// Field not loaded yet. Offer nothing, but keep the record.
		return nil
	}

	field := make(map[int64]*models.Golfer, len(availableGolfers))
	for _, golfer := range availableGolfers {
		field[golfer.ID] = golfer
	}

	selections := normalizeSlots(record.Selections)
	validCount := 0
	for i, pick := range selections {
		if pick == nil {
			continue
		}
		live, stillInField := field[pick.ID]
		if !stillInField {
			selections[i] = nil
			continue
		}
		selections[i] = live
		validCount++
	}

	if validCount == 0 {
		c.logger.Debug("discarding draft record with no remaining valid picks",
			zap.Int64("tournament_id", tournamentID),
		)
		c.destroy(ctx)
		return nil
	}

	return selections
}

// Exists reports whether a restorable record is present for the given
// tournament. It checks tournament and expiry only, never the field, and
// never mutates storage: expired or mismatched records are left for Load
// to clean up. Any storage or parse error reports false.
func (c *Cache) Exists(ctx context.Context, tournamentID int64) bool {
	payload, ok, err := c.store.Get(ctx, StorageKey)
	if err != nil || !ok {
		return false
	}

	var record Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return false
	}

	if record.TournamentID != tournamentID {
		return false
	}

	return c.clock.Now().UnixMilli() <= record.ExpiresAt
}

// Clear removes the stored record. Clearing an empty store is a no-op;
// storage failures are logged and swallowed.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.store.Remove(ctx, StorageKey); err != nil {
		c.logger.Warn("failed to clear draft selections", zap.Error(err))
	}
}

func (c *Cache) destroy(ctx context.Context) {
	if err := c.store.Remove(ctx, StorageKey); err != nil {
		c.logger.Warn("failed to remove stale draft record", zap.Error(err))
	}
}

// normalizeSlots copies selections into a slice of exactly SlotCount
// entries, padding with nil and dropping extras, so positional meaning
// survives malformed input.
func normalizeSlots(selections []*models.Golfer) []*models.Golfer {
	slots := make([]*models.Golfer, SlotCount)
	copy(slots, selections)
	return slots
}
