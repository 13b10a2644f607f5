package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// LeaderboardSocket upgrades the request to a websocket subscribed to
// a tournament's live events. Browsers cannot set headers on a
// WebSocket handshake, so the session may also arrive as a query
// parameter.
func (h *Handlers) LeaderboardSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		h.respondError(w, http.StatusServiceUnavailable, "live updates are not enabled")
		return
	}

	sessionID := bearerToken(r)
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}
	if sessionID == "" {
		h.respondError(w, http.StatusUnauthorized, "missing session")
		return
	}

	user, err := h.resolveUser(r.Context(), sessionID)
	if err != nil {
		h.logger.Debug("failed to resolve session for socket", zap.Error(err))
		h.respondError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	tournamentID, err := strconv.ParseInt(r.URL.Query().Get("tournamentId"), 10, 64)
	if err != nil || tournamentID <= 0 {
		h.respondError(w, http.StatusBadRequest, "tournamentId is required")
		return
	}

	// The hub writes its own error response on refusal
	if err := h.wsHub.HandleConnection(w, r, user.ID, tournamentID); err != nil {
		h.logger.Debug("socket connection refused",
			zap.Int64("user_id", user.ID),
			zap.Int64("tournament_id", tournamentID),
			zap.Error(err),
		)
	}
}
