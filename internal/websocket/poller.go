package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/auth"
	"github.com/fairwayclub/golfpoolserver/internal/database"
	"github.com/fairwayclub/golfpoolserver/internal/models"
)

// Poller refetches the leaderboard for every tournament that has
// subscribers and pushes the snapshots through the hub
type Poller struct {
	db         *database.DB
	poolClient *auth.PoolClient
	hub        *Hub
	logger     *zap.Logger
	interval   time.Duration

	mu         sync.Mutex
	lastStatus map[int64]models.TournamentStatus
}

// NewPoller creates a new leaderboard poller
func NewPoller(db *database.DB, poolClient *auth.PoolClient, hub *Hub, logger *zap.Logger, interval time.Duration) *Poller {
	return &Poller{
		db:         db,
		poolClient: poolClient,
		hub:        hub,
		logger:     logger,
		interval:   interval,
		lastStatus: make(map[int64]models.TournamentStatus),
	}
}

// Run polls until the context is cancelled
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("leaderboard poller started", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("leaderboard poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one refresh pass over every watched tournament
func (p *Poller) poll(ctx context.Context) {
	for _, tournamentID := range p.hub.ActiveTournaments() {
		p.pollTournament(ctx, tournamentID)
	}
}

func (p *Poller) pollTournament(ctx context.Context, tournamentID int64) {
	p.broadcastStatusChange(ctx, tournamentID)

	poolLeaderboard, err := p.poolClient.GetLeaderboard(ctx, tournamentID)
	if err != nil {
		p.logger.Error("failed to poll leaderboard",
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
		return
	}

	p.hub.Broadcast(tournamentID, NewLeaderboardEvent(poolLeaderboard.ToModel()))
}

// broadcastStatusChange emits a tournament_status event when the
// stored status differs from the last one observed. The first
// observation counts as a change so fresh subscribers get the current
// state.
func (p *Poller) broadcastStatusChange(ctx context.Context, tournamentID int64) {
	tournament, err := p.db.GetTournament(ctx, tournamentID)
	if err != nil {
		p.logger.Debug("no stored tournament for status tracking",
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
		return
	}

	p.mu.Lock()
	previous, seen := p.lastStatus[tournamentID]
	p.lastStatus[tournamentID] = tournament.Status
	p.mu.Unlock()

	if seen && previous == tournament.Status {
		return
	}

	p.hub.Broadcast(tournamentID, NewStatusEvent(tournamentID, tournament.Status))
}
