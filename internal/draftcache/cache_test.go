package draftcache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/models"
)

// countingStore wraps MemStore and counts primitive invocations so tests
// can verify which storage operations actually ran.
type countingStore struct {
	*MemStore
	getCalls    int
	setCalls    int
	removeCalls int
}

func newCountingStore() *countingStore {
	return &countingStore{MemStore: NewMemStore()}
}

func (s *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.getCalls++
	return s.MemStore.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key, value string) error {
	s.setCalls++
	return s.MemStore.Set(ctx, key, value)
}

func (s *countingStore) Remove(ctx context.Context, key string) error {
	s.removeCalls++
	return s.MemStore.Remove(ctx, key)
}

// failingStore returns an error from every operation
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("storage unavailable")
}

func (failingStore) Remove(context.Context, string) error {
	return errors.New("storage unavailable")
}

func newTestCache(store Store) (*Cache, clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 9, 12, 0, 0, 0, time.UTC))
	return New(store, clock, zap.NewNop()), clock
}

func golfer(id int64, name string) *models.Golfer {
	return &models.Golfer{ID: id, Name: name}
}

// ============================================================================
// Save Tests
// ============================================================================

func TestCache_Save_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	cache, _ := newTestCache(store)

	field := []*models.Golfer{
		{ID: 1, Name: "Scottie Scheffler", Country: "USA", WorldRank: 1},
		{ID: 2, Name: "Rory McIlroy", Country: "NIR", WorldRank: 2},
		{ID: 3, Name: "Jon Rahm", Country: "ESP", WorldRank: 3},
	}
	selections := []*models.Golfer{field[0], field[2], nil, nil, nil, nil, nil, field[1]}

	cache.Save(ctx, 7, selections)
	restored := cache.Load(ctx, 7, field)

	require.NotNil(t, restored)
	require.Len(t, restored, SlotCount)
	assert.Equal(t, field[0], restored[0], "slot 0 should hold the live field object")
	assert.Equal(t, field[2], restored[1])
	assert.Equal(t, field[1], restored[7], "slot position must be preserved")
	for i := 2; i < 7; i++ {
		assert.Nil(t, restored[i], "empty slots must stay empty")
	}
}

func TestCache_Save_ZeroTournamentIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	cache, _ := newTestCache(store)

	cache.Save(ctx, 0, []*models.Golfer{golfer(1, "A")})

	assert.Zero(t, store.setCalls, "nothing should be written for a missing tournament id")
	assert.Zero(t, store.Len())
}

func TestCache_Save_OverwritesPriorRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	cache, _ := newTestCache(store)

	field := []*models.Golfer{golfer(1, "A"), golfer(2, "B")}

	cache.Save(ctx, 7, []*models.Golfer{field[0]})
	cache.Save(ctx, 7, []*models.Golfer{field[1], field[0]})

	restored := cache.Load(ctx, 7, field)
	require.NotNil(t, restored)
	assert.Equal(t, field[1], restored[0], "latest save should win wholesale")
	assert.Equal(t, field[0], restored[1])
	assert.Equal(t, 1, store.Len(), "only one record may exist at a time")
}

func TestCache_Save_NormalizesSlotCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	cache, _ := newTestCache(store)

	// Short input pads to 8 slots
	cache.Save(ctx, 7, []*models.Golfer{golfer(1, "A")})

	payload, ok, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)

	var record Record
	require.NoError(t, json.Unmarshal([]byte(payload), &record))
	assert.Len(t, record.Selections, SlotCount)

	// Oversized input truncates to 8 slots
	oversized := make([]*models.Golfer, SlotCount+3)
	for i := range oversized {
		oversized[i] = golfer(int64(i+1), "G")
	}
	cache.Save(ctx, 7, oversized)

	payload, _, err = store.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(payload), &record))
	assert.Len(t, record.Selections, SlotCount)
}

func TestCache_Save_WireFormat(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	cache, clock := newTestCache(store)

	cache.Save(ctx, 7, []*models.Golfer{golfer(1, "A")})

	payload, ok, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)

	var record Record
	require.NoError(t, json.Unmarshal([]byte(payload), &record))

	now := clock.Now()
	assert.Equal(t, int64(7), record.TournamentID)
	assert.Equal(t, now.UnixMilli(), record.SavedAt)
	assert.Equal(t, now.UnixMilli()+172800000, record.ExpiresAt, "expiry must be saved-at plus the 48h TTL")
}

func TestCache_Save_StorageFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(failingStore{})

	assert.NotPanics(t, func() {
		cache.Save(ctx, 7, []*models.Golfer{golfer(1, "A")})
	})
}

// ============================================================================
// Load Tests
// ============================================================================

func TestCache_Load_NoRecord(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(NewMemStore())

	assert.Nil(t, cache.Load(ctx, 7, []*models.Golfer{golfer(1, "A")}))
}

func TestCache_Load_TournamentMismatchDestroysRecord(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	cache, _ := newTestCache(store)

	field := []*models.Golfer{golfer(1, "A")}
	cache.Save(ctx, 1, []*models.Golfer{field[0]})

	assert.Nil(t, cache.Load(ctx, 2, field), "a draft for another tournament must never leak")
	assert.Equal(t, 1, store.removeCalls)
	assert.Zero(t, store.Len())

	// The record is gone for the original tournament too
	assert.Nil(t, cache.Load(ctx, 1, field))
}

func TestCache_Load_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	field := []*models.Golfer{golfer(1, "A")}

	tests := []struct {
		name        string
		advance     time.Duration
		wantRestore bool
	}{
		{"well within TTL", time.Hour, true},
		{"at the TTL boundary", TTL, true},
		{"just past the TTL", TTL + time.Millisecond, false},
		{"long expired", TTL + 72*time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			cache, clock := newTestCache(store)

			cache.Save(ctx, 7, []*models.Golfer{field[0]})
			clock.Advance(tt.advance)

			restored := cache.Load(ctx, 7, field)
			if tt.wantRestore {
				assert.NotNil(t, restored)
				assert.Zero(t, store.removeCalls)
			} else {
				assert.Nil(t, restored)
				assert.Equal(t, 1, store.removeCalls, "expired records must be destroyed on read")
			}
		})
	}
}

func TestCache_Load_PartialInvalidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	cache, _ := newTestCache(store)

	golferA := golfer(1, "A")
	golferB := golfer(2, "B")
	cache.Save(ctx, 7, []*models.Golfer{golferA, golferB})

	// Golfer B has withdrawn from the field
	restored := cache.Load(ctx, 7, []*models.Golfer{golferA})

	require.NotNil(t, restored, "record with surviving picks must not be destroyed")
	assert.Equal(t, golferA, restored[0])
	assert.Nil(t, restored[1], "slot of a withdrawn golfer is emptied, not the whole record")
	assert.Equal(t, 1, store.Len())
}

func TestCache_Load_TotalInvalidationDestroysRecord(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	cache, _ := newTestCache(store)

	cache.Save(ctx, 7, []*models.Golfer{golfer(1, "X"), golfer(2, "Y")})

	restored := cache.Load(ctx, 7, []*models.Golfer{golfer(3, "Z")})

	assert.Nil(t, restored, "a fully-invalidated draft is the same as no draft")
	assert.Equal(t, 1, store.removeCalls)
	assert.Zero(t, store.Len())
}

func TestCache_Load_RefreshesGolferFieldsFromLiveField(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(NewMemStore())

	stale := &models.Golfer{ID: 1, Name: "S. Scheffler", Country: "", WorldRank: 4}
	cache.Save(ctx, 7, []*models.Golfer{stale})

	live := &models.Golfer{ID: 1, Name: "Scottie Scheffler", Country: "USA", WorldRank: 1}
	restored := cache.Load(ctx, 7, []*models.Golfer{live})

	require.NotNil(t, restored)
	assert.Equal(t, live, restored[0], "cached golfer fields must be replaced by the live object")
}

func TestCache_Load_EmptyFieldKeepsRecord(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	cache, _ := newTestCache(store)

	golferA := golfer(1, "A")
	cache.Save(ctx, 7, []*models.Golfer{golferA})

	// Field fetch has not completed yet: offer nothing, destroy nothing
	assert.Nil(t, cache.Load(ctx, 7, nil))
	assert.Zero(t, store.removeCalls)
	assert.Equal(t, 1, store.Len())

	// Once the field arrives the draft is still restorable
	restored := cache.Load(ctx, 7, []*models.Golfer{golferA})
	require.NotNil(t, restored)
	assert.Equal(t, golferA, restored[0])
}

func TestCache_Load_CorruptedPayload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "definitely{not json"},
		{"wrong shape", `{"tournamentId":"seven"}`},
		{"truncated", `{"tournamentId":7,"savedAt":1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			require.NoError(t, store.Set(ctx, StorageKey, tt.payload))
			cache, _ := newTestCache(store)

			assert.NotPanics(t, func() {
				assert.Nil(t, cache.Load(ctx, 7, []*models.Golfer{golfer(1, "A")}))
			})
			assert.Equal(t, 1, store.removeCalls, "corrupted records must be wiped")
			assert.Zero(t, store.Len())
		})
	}
}

func TestCache_Load_StorageFailureReturnsNil(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(failingStore{})

	assert.NotPanics(t, func() {
		assert.Nil(t, cache.Load(ctx, 7, []*models.Golfer{golfer(1, "A")}))
	})
}

func TestCache_Load_MalformedSlotCountIsNormalized(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	cache, clock := newTestCache(store)

	// A hand-written record with too few slots must still restore
	// positionally.
	record := Record{
		TournamentID: 7,
		SavedAt:      clock.Now().UnixMilli(),
		ExpiresAt:    clock.Now().Add(TTL).UnixMilli(),
		Selections:   []*models.Golfer{golfer(1, "A")},
	}
	payload, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, StorageKey, string(payload)))

	restored := cache.Load(ctx, 7, []*models.Golfer{golfer(1, "A")})
	require.NotNil(t, restored)
	assert.Len(t, restored, SlotCount)
}

// ============================================================================
// Exists Tests
// ============================================================================

func TestCache_Exists(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	cache, clock := newTestCache(store)

	assert.False(t, cache.Exists(ctx, 7), "empty store has no record")

	cache.Save(ctx, 7, []*models.Golfer{golfer(1, "A")})
	assert.True(t, cache.Exists(ctx, 7))
	assert.False(t, cache.Exists(ctx, 8), "record belongs to a different tournament")

	clock.Advance(TTL + time.Second)
	assert.False(t, cache.Exists(ctx, 7), "expired record must not be reported")
	assert.Zero(t, store.removeCalls, "Exists never performs destructive cleanup")
	assert.Equal(t, 1, store.Len())
}

func TestCache_Exists_SkipsGolferValidation(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(NewMemStore())

	// All picks are out of the field, but Exists has no field to check
	// against and must still report the record.
	cache.Save(ctx, 7, []*models.Golfer{golfer(99, "Gone")})
	assert.True(t, cache.Exists(ctx, 7))
}

func TestCache_Exists_ErrorsReportFalse(t *testing.T) {
	ctx := context.Background()

	cache, _ := newTestCache(failingStore{})
	assert.False(t, cache.Exists(ctx, 7))

	store := NewMemStore()
	require.NoError(t, store.Set(ctx, StorageKey, "corrupt"))
	cache, _ = newTestCache(store)
	assert.False(t, cache.Exists(ctx, 7))
}

// ============================================================================
// Clear Tests
// ============================================================================

func TestCache_Clear_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	cache, _ := newTestCache(store)

	cache.Save(ctx, 7, []*models.Golfer{golfer(1, "A")})
	cache.Clear(ctx)
	assert.Zero(t, store.Len())

	assert.NotPanics(t, func() {
		cache.Clear(ctx)
		cache.Clear(ctx)
	})
	assert.Zero(t, store.Len())
}

func TestCache_Clear_StorageFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(failingStore{})

	assert.NotPanics(t, func() {
		cache.Clear(ctx)
	})
}

// ============================================================================
// End-to-End Scenario
// ============================================================================

func TestCache_DraftLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	cache, _ := newTestCache(store)

	picked := golfer(1, "A")
	cache.Save(ctx, 7, []*models.Golfer{picked, nil, nil, nil, nil, nil, nil, nil})

	assert.True(t, cache.Exists(ctx, 7))
	assert.False(t, cache.Exists(ctx, 8))

	field := []*models.Golfer{{ID: 1, Name: "A"}}
	restored := cache.Load(ctx, 7, field)
	require.NotNil(t, restored)
	require.Len(t, restored, SlotCount)
	assert.Equal(t, field[0], restored[0])
	for i := 1; i < SlotCount; i++ {
		assert.Nil(t, restored[i])
	}

	// Entry submitted: record is consumed
	cache.Clear(ctx)
	assert.Nil(t, cache.Load(ctx, 7, field))
	assert.False(t, cache.Exists(ctx, 7))
}
