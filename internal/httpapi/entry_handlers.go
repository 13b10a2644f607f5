package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/auth"
	"github.com/fairwayclub/golfpoolserver/internal/models"
)

type submitEntryRequest struct {
	TournamentID int64   `json:"tournamentId"`
	PickIDs      []int64 `json:"pickIds"`
}

type updateEntryRequest struct {
	EntryID int64   `json:"entryId"`
	PickIDs []int64 `json:"pickIds"`
}

// entryResponse echoes the pool backend's view of an entry. The id is
// the pool's entry id, which update and withdraw calls require.
type entryResponse struct {
	ID           int64     `json:"id"`
	TournamentID int64     `json:"tournamentId"`
	PickIDs      []int64   `json:"pickIds"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

func entryResponseFrom(poolEntry *auth.PoolEntry) entryResponse {
	return entryResponse{
		ID:           poolEntry.ID,
		TournamentID: poolEntry.TournamentID,
		PickIDs:      poolEntry.PickIDs,
		Status:       poolEntry.Status,
		SubmittedAt:  poolEntry.SubmittedAt,
	}
}

// SubmitEntry submits the user's picks to the pool backend as their
// official entry. On success the local copy is stored and any saved
// draft is discarded, since the draft has served its purpose.
func (h *Handlers) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req submitEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TournamentID <= 0 {
		h.respondError(w, http.StatusBadRequest, "tournamentId is required")
		return
	}

	if len(req.PickIDs) != models.EntrySlotCount {
		h.respondError(w, http.StatusBadRequest, "an entry requires exactly 8 picks")
		return
	}

	accessToken, err := h.memberAccessToken(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to get access token", zap.Int64("user_id", user.ID), zap.Error(err))
		h.respondError(w, http.StatusUnauthorized, "failed to authenticate with the pool")
		return
	}

	poolEntry, err := h.poolClient.SubmitEntry(r.Context(), accessToken, req.TournamentID, req.PickIDs)
	if err != nil {
		h.logger.Error("failed to submit entry",
			zap.Int64("user_id", user.ID),
			zap.Int64("tournament_id", req.TournamentID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadGateway, "failed to submit entry")
		return
	}

	h.storeEntry(r, user.ID, poolEntry)

	// The entry is in; the autosaved draft is done
	h.draftCache(user.ID).Clear(r.Context())

	h.logger.Info("entry submitted",
		zap.Int64("user_id", user.ID),
		zap.Int64("tournament_id", req.TournamentID),
		zap.Int64("entry_id", poolEntry.ID),
	)

	h.respondJSON(w, http.StatusCreated, entryResponseFrom(poolEntry))
}

// GetUserEntry returns the user's entry for a tournament, 404 when none
// has been submitted
func (h *Handlers) GetUserEntry(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	tournamentID, err := strconv.ParseInt(r.URL.Query().Get("tournamentId"), 10, 64)
	if err != nil || tournamentID <= 0 {
		h.respondError(w, http.StatusBadRequest, "tournamentId is required")
		return
	}

	accessToken, err := h.memberAccessToken(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to get access token", zap.Int64("user_id", user.ID), zap.Error(err))
		h.respondError(w, http.StatusUnauthorized, "failed to authenticate with the pool")
		return
	}

	poolEntry, err := h.poolClient.GetEntry(r.Context(), accessToken, tournamentID)
	if err != nil {
		h.logger.Error("failed to fetch entry",
			zap.Int64("user_id", user.ID),
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadGateway, "failed to fetch entry")
		return
	}

	if poolEntry == nil {
		h.respondError(w, http.StatusNotFound, "no entry found")
		return
	}

	h.storeEntry(r, user.ID, poolEntry)

	h.respondJSON(w, http.StatusOK, entryResponseFrom(poolEntry))
}

// UpdateEntry replaces the picks on an already-submitted entry
func (h *Handlers) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.EntryID <= 0 {
		h.respondError(w, http.StatusBadRequest, "entryId is required")
		return
	}

	if len(req.PickIDs) != models.EntrySlotCount {
		h.respondError(w, http.StatusBadRequest, "an entry requires exactly 8 picks")
		return
	}

	accessToken, err := h.memberAccessToken(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to get access token", zap.Int64("user_id", user.ID), zap.Error(err))
		h.respondError(w, http.StatusUnauthorized, "failed to authenticate with the pool")
		return
	}

	poolEntry, err := h.poolClient.UpdateEntry(r.Context(), accessToken, req.EntryID, req.PickIDs)
	if err != nil {
		h.logger.Error("failed to update entry",
			zap.Int64("user_id", user.ID),
			zap.Int64("entry_id", req.EntryID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadGateway, "failed to update entry")
		return
	}

	h.storeEntry(r, user.ID, poolEntry)

	h.logger.Info("entry updated",
		zap.Int64("user_id", user.ID),
		zap.Int64("entry_id", req.EntryID),
	)

	h.respondJSON(w, http.StatusOK, entryResponseFrom(poolEntry))
}

// WithdrawEntry withdraws the user's entry from a tournament
func (h *Handlers) WithdrawEntry(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	entryID, err := strconv.ParseInt(r.URL.Query().Get("entryId"), 10, 64)
	if err != nil || entryID <= 0 {
		h.respondError(w, http.StatusBadRequest, "entryId is required")
		return
	}

	tournamentID, err := strconv.ParseInt(r.URL.Query().Get("tournamentId"), 10, 64)
	if err != nil || tournamentID <= 0 {
		h.respondError(w, http.StatusBadRequest, "tournamentId is required")
		return
	}

	accessToken, err := h.memberAccessToken(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to get access token", zap.Int64("user_id", user.ID), zap.Error(err))
		h.respondError(w, http.StatusUnauthorized, "failed to authenticate with the pool")
		return
	}

	if err := h.poolClient.WithdrawEntry(r.Context(), accessToken, entryID); err != nil {
		h.logger.Error("failed to withdraw entry",
			zap.Int64("user_id", user.ID),
			zap.Int64("entry_id", entryID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadGateway, "failed to withdraw entry")
		return
	}

	if err := h.db.DeleteEntry(r.Context(), user.ID, tournamentID); err != nil {
		h.logger.Warn("failed to delete local entry",
			zap.Int64("user_id", user.ID),
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
	}

	h.logger.Info("entry withdrawn",
		zap.Int64("user_id", user.ID),
		zap.Int64("entry_id", entryID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// storeEntry mirrors a pool entry into the local entries table.
// Storage failure is logged, not surfaced; the pool backend holds the
// authoritative entry either way.
func (h *Handlers) storeEntry(r *http.Request, userID int64, poolEntry *auth.PoolEntry) {
	entry := &models.Entry{
		UserID:       userID,
		TournamentID: poolEntry.TournamentID,
		PickIDs:      append([]int64(nil), poolEntry.PickIDs...),
		Status:       models.EntryStatus(poolEntry.Status),
		SubmittedAt:  poolEntry.SubmittedAt,
	}

	if err := h.db.UpsertEntry(r.Context(), entry); err != nil {
		h.logger.Error("failed to store entry",
			zap.Int64("user_id", userID),
			zap.Int64("entry_id", poolEntry.ID),
			zap.Error(err),
		)
	}
}
