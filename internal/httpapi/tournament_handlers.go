package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/models"
)

type tournamentsResponse struct {
	Tournaments []*models.Tournament `json:"tournaments"`
	FromCache   bool                 `json:"from_cache"`
}

// ListTournaments returns the pool's tournament schedule, served from
// the local copy while the cache window is open. ?refresh=true forces a
// refetch from the pool backend.
func (h *Handlers) ListTournaments(w http.ResponseWriter, r *http.Request) {
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	tournaments, fromCache, err := h.fetchTournaments(r.Context(), forceRefresh)
	if err != nil {
		h.logger.Error("failed to fetch tournaments", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "failed to fetch tournaments")
		return
	}

	h.respondJSON(w, http.StatusOK, tournamentsResponse{
		Tournaments: tournaments,
		FromCache:   fromCache,
	})
}

// ActiveTournament returns the tournament currently in play, 404 when
// no tournament is live.
func (h *Handlers) ActiveTournament(w http.ResponseWriter, r *http.Request) {
	// The schedule cache usually answers this without a remote call
	if valid, _ := h.cacheManager.CheckTournamentsCache(r.Context()); valid {
		tournaments, err := h.db.ListTournaments(r.Context())
		if err == nil {
			for _, t := range tournaments {
				if t.Status == models.TournamentStatusLive {
					h.respondJSON(w, http.StatusOK, t)
					return
				}
			}
			h.respondError(w, http.StatusNotFound, "no active tournament")
			return
		}
	}

	poolTournament, err := h.poolClient.GetActiveTournament(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch active tournament", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "failed to fetch active tournament")
		return
	}

	if poolTournament == nil {
		h.respondError(w, http.StatusNotFound, "no active tournament")
		return
	}

	tournament := poolTournament.ToModel()
	if err := h.db.UpsertTournament(r.Context(), tournament); err != nil {
		h.logger.Error("failed to store tournament", zap.Error(err))
	}

	h.respondJSON(w, http.StatusOK, tournament)
}

type fieldResponse struct {
	TournamentID int64            `json:"tournament_id"`
	Golfers      []*models.Golfer `json:"golfers"`
	FromCache    bool             `json:"from_cache"`
}

// TournamentField returns the golfers in a tournament's field
func (h *Handlers) TournamentField(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := h.tournamentIDParam(w, r)
	if !ok {
		return
	}

	forceRefresh := r.URL.Query().Get("refresh") == "true"

	golfers, fromCache, err := h.fetchField(r.Context(), tournamentID, forceRefresh)
	if err != nil {
		h.logger.Error("failed to fetch tournament field",
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadGateway, "failed to fetch tournament field")
		return
	}

	h.respondJSON(w, http.StatusOK, fieldResponse{
		TournamentID: tournamentID,
		Golfers:      golfers,
		FromCache:    fromCache,
	})
}

// TournamentLeaderboard returns the live leaderboard for a tournament
func (h *Handlers) TournamentLeaderboard(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := h.tournamentIDParam(w, r)
	if !ok {
		return
	}

	if leaderboard, ok := h.cacheManager.GetLeaderboard(r.Context(), tournamentID); ok {
		h.respondJSON(w, http.StatusOK, leaderboard)
		return
	}

	poolLeaderboard, err := h.poolClient.GetLeaderboard(r.Context(), tournamentID)
	if err != nil {
		h.logger.Error("failed to fetch leaderboard",
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadGateway, "failed to fetch leaderboard")
		return
	}

	leaderboard := poolLeaderboard.ToModel()
	if err := h.cacheManager.StoreLeaderboard(r.Context(), leaderboard); err != nil {
		h.logger.Warn("failed to cache leaderboard", zap.Error(err))
	}

	h.respondJSON(w, http.StatusOK, leaderboard)
}

type standingsResponse struct {
	Standings []*models.StandingsRow `json:"standings"`
}

// Standings returns the season-long pool standings
func (h *Handlers) Standings(w http.ResponseWriter, r *http.Request) {
	if standings, ok := h.cacheManager.GetStandings(r.Context()); ok {
		h.respondJSON(w, http.StatusOK, standingsResponse{Standings: standings})
		return
	}

	poolStandings, err := h.poolClient.GetStandings(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch standings", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "failed to fetch standings")
		return
	}

	standings := make([]*models.StandingsRow, 0, len(poolStandings))
	for _, row := range poolStandings {
		standings = append(standings, row.ToModel())
	}

	if err := h.cacheManager.StoreStandings(r.Context(), standings); err != nil {
		h.logger.Warn("failed to cache standings", zap.Error(err))
	}

	h.respondJSON(w, http.StatusOK, standingsResponse{Standings: standings})
}

// fetchTournaments serves the schedule from Postgres while the cache is
// valid, otherwise refetches from the pool backend and stores it
func (h *Handlers) fetchTournaments(ctx context.Context, forceRefresh bool) ([]*models.Tournament, bool, error) {
	if !forceRefresh {
		if valid, _ := h.cacheManager.CheckTournamentsCache(ctx); valid {
			tournaments, err := h.db.ListTournaments(ctx)
			if err == nil && len(tournaments) > 0 {
				return tournaments, true, nil
			}
		}
	}

	poolTournaments, err := h.poolClient.GetTournaments(ctx)
	if err != nil {
		return nil, false, err
	}

	tournaments := make([]*models.Tournament, 0, len(poolTournaments))
	for _, pt := range poolTournaments {
		tournament := pt.ToModel()
		if err := h.db.UpsertTournament(ctx, tournament); err != nil {
			h.logger.Error("failed to store tournament",
				zap.Int64("tournament_id", tournament.ID),
				zap.Error(err),
			)
			continue
		}
		tournaments = append(tournaments, tournament)
	}

	if err := h.cacheManager.SetTournamentsCache(ctx); err != nil {
		h.logger.Warn("failed to set tournament cache", zap.Error(err))
	}

	return tournaments, false, nil
}

// fetchField serves a tournament field from Postgres while the cache is
// valid, otherwise refetches from the pool backend and replaces the
// stored field. Draft restore runs through here too, so a stale cache
// window is the only thing standing between a dropped golfer and an
// invalidated pick slot.
func (h *Handlers) fetchField(ctx context.Context, tournamentID int64, forceRefresh bool) ([]*models.Golfer, bool, error) {
	if !forceRefresh {
		if valid, _ := h.cacheManager.CheckFieldCache(ctx, tournamentID); valid {
			golfers, err := h.db.GetTournamentField(ctx, tournamentID)
			if err == nil && len(golfers) > 0 {
				return golfers, true, nil
			}
		}
	}

	poolGolfers, err := h.poolClient.GetTournamentField(ctx, tournamentID)
	if err != nil {
		return nil, false, err
	}

	golfers := make([]*models.Golfer, 0, len(poolGolfers))
	for _, pg := range poolGolfers {
		golfers = append(golfers, pg.ToModel())
	}

	if err := h.db.ReplaceTournamentField(ctx, tournamentID, golfers); err != nil {
		h.logger.Error("failed to store tournament field",
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
	}

	if err := h.cacheManager.SetFieldCache(ctx, tournamentID); err != nil {
		h.logger.Warn("failed to set field cache", zap.Error(err))
	}

	return golfers, false, nil
}

// tournamentIDParam parses the {tournamentID} route parameter, writing
// a 400 response on failure
func (h *Handlers) tournamentIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "tournamentID")

	tournamentID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || tournamentID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid tournament id")
		return 0, false
	}

	return tournamentID, true
}
