package httpapi

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/database"
	"github.com/fairwayclub/golfpoolserver/internal/models"
)

// Cache TTLs per data type. Tournament schedules barely move, fields
// settle the day before play, leaderboards churn constantly during a
// round, and standings only change when a tournament finishes.
const (
	tournamentsCacheTTL = 6 * time.Hour
	fieldCacheTTL       = 1 * time.Hour
	leaderboardCacheTTL = 2 * time.Minute
	standingsCacheTTL   = 15 * time.Minute
)

// scheduleEntityID is the cache_metadata entity for the shared
// tournament schedule. Schedules and standings are pool-wide, so their
// cache rows carry no user.
const (
	scheduleEntityID  = "schedule"
	standingsEntityID = "season"
)

// CacheManager decides when pool data can be served from the local copy
// and when it must be refetched. Tournament and field data live in
// Postgres with cache_metadata tracking freshness; leaderboard and
// standings snapshots are short-lived enough to hold in memory, still
// gated by the same metadata rows.
type CacheManager struct {
	db     *database.DB
	logger *zap.Logger

	mu           sync.RWMutex
	leaderboards map[int64]*models.Leaderboard
	standings    []*models.StandingsRow
}

// NewCacheManager creates a new cache manager
func NewCacheManager(db *database.DB, logger *zap.Logger) *CacheManager {
	return &CacheManager{
		db:           db,
		logger:       logger,
		leaderboards: make(map[int64]*models.Leaderboard),
	}
}

// CheckTournamentsCache checks if the tournament schedule is cached and valid
func (cm *CacheManager) CheckTournamentsCache(ctx context.Context) (bool, error) {
	valid, err := cm.db.IsCacheValid(ctx, models.CacheTypeTournament, scheduleEntityID, nil)
	if err != nil {
		cm.logger.Debug("tournament cache check failed", zap.Error(err))
		return false, nil
	}

	if valid {
		cm.logger.Debug("tournament cache hit")
	} else {
		cm.logger.Debug("tournament cache miss")
	}

	return valid, nil
}

// SetTournamentsCache marks the tournament schedule as freshly fetched
func (cm *CacheManager) SetTournamentsCache(ctx context.Context) error {
	err := cm.db.SetCacheMetadata(ctx, models.CacheTypeTournament, scheduleEntityID, nil, tournamentsCacheTTL)
	if err != nil {
		return err
	}

	cm.logger.Debug("tournament cache set")
	return nil
}

// CheckFieldCache checks if a tournament's field is cached and valid
func (cm *CacheManager) CheckFieldCache(ctx context.Context, tournamentID int64) (bool, error) {
	entityID := strconv.FormatInt(tournamentID, 10)

	valid, err := cm.db.IsCacheValid(ctx, models.CacheTypeField, entityID, nil)
	if err != nil {
		cm.logger.Debug("field cache check failed", zap.Error(err))
		return false, nil
	}

	if valid {
		cm.logger.Debug("field cache hit", zap.Int64("tournament_id", tournamentID))
	} else {
		cm.logger.Debug("field cache miss", zap.Int64("tournament_id", tournamentID))
	}

	return valid, nil
}

// SetFieldCache marks a tournament's field as freshly fetched
func (cm *CacheManager) SetFieldCache(ctx context.Context, tournamentID int64) error {
	entityID := strconv.FormatInt(tournamentID, 10)

	err := cm.db.SetCacheMetadata(ctx, models.CacheTypeField, entityID, nil, fieldCacheTTL)
	if err != nil {
		return err
	}

	cm.logger.Debug("field cache set", zap.Int64("tournament_id", tournamentID))
	return nil
}

// GetLeaderboard returns the cached leaderboard snapshot for a
// tournament, with false when there is no valid snapshot to serve
func (cm *CacheManager) GetLeaderboard(ctx context.Context, tournamentID int64) (*models.Leaderboard, bool) {
	entityID := strconv.FormatInt(tournamentID, 10)

	valid, err := cm.db.IsCacheValid(ctx, models.CacheTypeLeaderboard, entityID, nil)
	if err != nil || !valid {
		cm.logger.Debug("leaderboard cache miss", zap.Int64("tournament_id", tournamentID))
		return nil, false
	}

	cm.mu.RLock()
	leaderboard, ok := cm.leaderboards[tournamentID]
	cm.mu.RUnlock()

	// Metadata can outlive the snapshot across a restart; treat that as
	// a miss so the caller refetches.
	if !ok {
		cm.logger.Debug("leaderboard snapshot missing", zap.Int64("tournament_id", tournamentID))
		return nil, false
	}

	cm.logger.Debug("leaderboard cache hit", zap.Int64("tournament_id", tournamentID))
	return leaderboard, true
}

// StoreLeaderboard stores a leaderboard snapshot with its freshness window
func (cm *CacheManager) StoreLeaderboard(ctx context.Context, leaderboard *models.Leaderboard) error {
	cm.mu.Lock()
	cm.leaderboards[leaderboard.TournamentID] = leaderboard
	cm.mu.Unlock()

	entityID := strconv.FormatInt(leaderboard.TournamentID, 10)
	if err := cm.db.SetCacheMetadata(ctx, models.CacheTypeLeaderboard, entityID, nil, leaderboardCacheTTL); err != nil {
		return err
	}

	cm.logger.Debug("leaderboard cache set", zap.Int64("tournament_id", leaderboard.TournamentID))
	return nil
}

// GetStandings returns the cached season standings, with false when
// there is no valid snapshot to serve
func (cm *CacheManager) GetStandings(ctx context.Context) ([]*models.StandingsRow, bool) {
	valid, err := cm.db.IsCacheValid(ctx, models.CacheTypeStandings, standingsEntityID, nil)
	if err != nil || !valid {
		cm.logger.Debug("standings cache miss")
		return nil, false
	}

	cm.mu.RLock()
	standings := cm.standings
	cm.mu.RUnlock()

	if standings == nil {
		cm.logger.Debug("standings snapshot missing")
		return nil, false
	}

	cm.logger.Debug("standings cache hit")
	return standings, true
}

// StoreStandings stores a standings snapshot with its freshness window
func (cm *CacheManager) StoreStandings(ctx context.Context, standings []*models.StandingsRow) error {
	cm.mu.Lock()
	cm.standings = standings
	cm.mu.Unlock()

	if err := cm.db.SetCacheMetadata(ctx, models.CacheTypeStandings, standingsEntityID, nil, standingsCacheTTL); err != nil {
		return err
	}

	cm.logger.Debug("standings cache set")
	return nil
}

// InvalidateTournaments forces the next schedule request to refetch
func (cm *CacheManager) InvalidateTournaments(ctx context.Context) error {
	return cm.db.InvalidateCache(ctx, models.CacheTypeTournament, scheduleEntityID, nil)
}

// InvalidateField forces the next field request for a tournament to refetch
func (cm *CacheManager) InvalidateField(ctx context.Context, tournamentID int64) error {
	entityID := strconv.FormatInt(tournamentID, 10)
	return cm.db.InvalidateCache(ctx, models.CacheTypeField, entityID, nil)
}
