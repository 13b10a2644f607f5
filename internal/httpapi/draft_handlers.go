package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/models"
)

// Draft endpoints use the same camelCase field names as the persisted
// draft record so the frontend autosave payload round-trips untouched.

type saveDraftRequest struct {
	TournamentID int64            `json:"tournamentId"`
	Selections   []*models.Golfer `json:"selections"`
}

type draftResponse struct {
	TournamentID int64            `json:"tournamentId"`
	Selections   []*models.Golfer `json:"selections"`
}

// SaveDraft persists the user's in-progress draft selections. Saving
// never fails toward the caller: storage trouble is logged server-side
// and the autosave quietly becomes a no-op.
func (h *Handlers) SaveDraft(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req saveDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TournamentID <= 0 {
		h.respondError(w, http.StatusBadRequest, "tournamentId is required")
		return
	}

	h.draftCache(user.ID).Save(r.Context(), req.TournamentID, req.Selections)

	h.logger.Debug("draft saved",
		zap.Int64("user_id", user.ID),
		zap.Int64("tournament_id", req.TournamentID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// LoadDraft restores the user's saved draft for a tournament. The saved
// slots are validated against the live field before anything is
// returned; a missing, expired, or fully invalidated draft is a 404.
func (h *Handlers) LoadDraft(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	tournamentID, ok := h.draftTournamentID(w, r)
	if !ok {
		return
	}

	golfers, _, err := h.fetchField(r.Context(), tournamentID, false)
	if err != nil {
		h.logger.Error("failed to fetch field for draft restore",
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadGateway, "failed to fetch tournament field")
		return
	}

	selections := h.draftCache(user.ID).Load(r.Context(), tournamentID, golfers)
	if selections == nil {
		h.respondError(w, http.StatusNotFound, "no draft found")
		return
	}

	h.respondJSON(w, http.StatusOK, draftResponse{
		TournamentID: tournamentID,
		Selections:   selections,
	})
}

// DraftStatus reports whether a restorable draft exists for a
// tournament without touching the field or mutating the record
func (h *Handlers) DraftStatus(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	tournamentID, ok := h.draftTournamentID(w, r)
	if !ok {
		return
	}

	exists := h.draftCache(user.ID).Exists(r.Context(), tournamentID)

	h.respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// ClearDraft discards the user's saved draft
func (h *Handlers) ClearDraft(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	h.draftCache(user.ID).Clear(r.Context())

	w.WriteHeader(http.StatusNoContent)
}

// draftTournamentID parses the tournamentId query parameter, writing a
// 400 response on failure
func (h *Handlers) draftTournamentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("tournamentId")

	tournamentID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || tournamentID <= 0 {
		h.respondError(w, http.StatusBadRequest, "tournamentId is required")
		return 0, false
	}

	return tournamentID, true
}
