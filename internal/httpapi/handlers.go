// Package httpapi exposes the JSON API the dashboard frontend talks to:
// OAuth login flow, cached pool data, entry management, and draft
// selection autosave.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/auth"
	"github.com/fairwayclub/golfpoolserver/internal/database"
	"github.com/fairwayclub/golfpoolserver/internal/draftcache"
	"github.com/fairwayclub/golfpoolserver/internal/models"
	"github.com/fairwayclub/golfpoolserver/internal/websocket"
)

type contextKey int

const userContextKey contextKey = 0

// Handlers contains all HTTP handlers for the dashboard API
type Handlers struct {
	db                 *database.DB
	poolClient         *auth.PoolClient
	stateManager       *auth.StateManager
	oauthHandler       *auth.OAuthHandler
	cacheManager       *CacheManager
	clock              clockwork.Clock
	logger             *zap.Logger
	sessionExpiryHours int
	wsHub              *websocket.Hub
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	db *database.DB,
	poolClient *auth.PoolClient,
	stateManager *auth.StateManager,
	oauthHandler *auth.OAuthHandler,
	cacheManager *CacheManager,
	clock clockwork.Clock,
	logger *zap.Logger,
	sessionExpiryHours int,
) *Handlers {
	return &Handlers{
		db:                 db,
		poolClient:         poolClient,
		stateManager:       stateManager,
		oauthHandler:       oauthHandler,
		cacheManager:       cacheManager,
		clock:              clock,
		logger:             logger,
		sessionExpiryHours: sessionExpiryHours,
	}
}

// SetWebSocketHub attaches the live update hub. Without one, the
// socket endpoint reports the feature as unavailable.
func (h *Handlers) SetWebSocketHub(hub *websocket.Hub) {
	h.wsHub = hub
}

// Health handles health check requests
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("failed to write health check response", zap.Error(err))
	}
}

// draftCache returns the draft selection cache scoped to a user
func (h *Handlers) draftCache(userID int64) *draftcache.Cache {
	return draftcache.New(h.db.DraftStore(userID), h.clock, h.logger)
}

// RequireUser resolves "Authorization: Bearer <session-id>" to an
// authenticated user and stores it on the request context. Requests
// without a valid, authenticated session get 401.
func (h *Handlers) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := bearerToken(r)
		if sessionID == "" {
			h.respondError(w, http.StatusUnauthorized, "missing session")
			return
		}

		user, err := h.resolveUser(r.Context(), sessionID)
		if err != nil {
			h.logger.Debug("failed to resolve session", zap.Error(err))
			h.respondError(w, http.StatusUnauthorized, "invalid session")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveUser maps a session ID to its authenticated user
func (h *Handlers) resolveUser(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := h.db.GetAuthSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.IsAuthenticated() || !session.UserID.Valid {
		return nil, fmt.Errorf("session %s is not authenticated", sessionID)
	}

	return h.db.GetUserByID(ctx, session.UserID.Int64)
}

// userFrom returns the authenticated user placed on the context by RequireUser
func userFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// bearerToken extracts the token from an "Authorization: Bearer" header
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// memberAccessToken returns a valid plaintext access token for the
// user, refreshing and re-storing the stored token when it is close to
// expiry
func (h *Handlers) memberAccessToken(ctx context.Context, userID int64) (string, error) {
	oauthToken, err := h.db.GetOAuthToken(ctx, userID)
	if err != nil {
		return "", err
	}

	accessToken, wasRefreshed, err := h.poolClient.RefreshIfNeeded(ctx, oauthToken)
	if err != nil {
		return "", err
	}

	if wasRefreshed {
		if err := h.db.StoreOAuthToken(ctx, oauthToken); err != nil {
			h.logger.Error("failed to update refreshed token", zap.Error(err))
		}
	}

	return accessToken, nil
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
