package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/models"
)

type loginRequest struct {
	SessionID string `json:"sessionId"`
}

type loginResponse struct {
	AuthURL   string `json:"authUrl"`
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
}

// Login starts the OAuth flow: it creates a pending auth session plus a
// single-use state and hands back the pool authorization URL the
// frontend should redirect the member to.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	h.logger.Info("starting login flow", zap.String("session_id", sessionID))

	state, err := h.stateManager.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to start login")
		return
	}

	if err := h.stateManager.StoreState(r.Context(), state, sessionID); err != nil {
		h.logger.Error("failed to store state", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to start login")
		return
	}

	session := &models.AuthSession{
		SessionID:  sessionID,
		AuthStatus: models.AuthStatusPending,
		ExpiresAt:  time.Now().Add(time.Duration(h.sessionExpiryHours) * time.Hour),
	}
	if err := h.db.CreateAuthSession(r.Context(), session); err != nil {
		h.logger.Error("failed to create auth session", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to start login")
		return
	}

	h.respondJSON(w, http.StatusOK, loginResponse{
		AuthURL:   h.poolClient.GetAuthURL(state),
		SessionID: sessionID,
		State:     state,
	})
}

// Callback handles the OAuth redirect back from the pool backend. The
// member lands here in their browser, so the response is a small HTML
// page rather than JSON; the dashboard polls /auth/status for the
// outcome.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		errDesc := r.URL.Query().Get("error_description")
		h.logger.Error("oauth error from pool backend",
			zap.String("error", errParam),
			zap.String("description", errDesc),
		)
		h.renderError(w, "Sign-in failed", fmt.Sprintf("The pool returned an error: %s", errParam))
		return
	}

	if code == "" || state == "" {
		h.logger.Error("missing required callback parameters",
			zap.Bool("has_code", code != ""),
			zap.Bool("has_state", state != ""),
		)
		h.renderError(w, "Invalid request", "Missing required parameters (code or state)")
		return
	}

	h.logger.Info("received oauth callback", zap.String("state", state))

	if err := h.oauthHandler.HandleCallback(r.Context(), code, state); err != nil {
		h.logger.Error("failed to handle oauth callback", zap.Error(err))
		h.renderError(w, "Sign-in failed", "Could not complete sign-in. Please close this window and try again.")
		return
	}

	h.renderSuccess(w)
}

type authStatusResponse struct {
	Status string       `json:"status"`
	User   *models.User `json:"user,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Status reports where a login session stands. The frontend polls this
// after opening the authorization URL.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := bearerToken(r)
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session_id")
	}
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	session, err := h.db.GetAuthSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Debug("failed to get auth session", zap.String("session_id", sessionID), zap.Error(err))
		h.respondError(w, http.StatusNotFound, "session not found")
		return
	}

	if session.IsExpired() {
		h.logger.Warn("session has expired", zap.String("session_id", sessionID))
		h.respondJSON(w, http.StatusOK, authStatusResponse{
			Status: models.AuthStatusFailed,
			Error:  "session has expired",
		})
		return
	}

	resp := authStatusResponse{Status: session.AuthStatus}

	switch session.AuthStatus {
	case models.AuthStatusAuthenticated:
		if session.UserID.Valid {
			user, err := h.db.GetUserByID(r.Context(), session.UserID.Int64)
			if err != nil {
				h.logger.Error("failed to get user", zap.Int64("user_id", session.UserID.Int64), zap.Error(err))
				h.respondError(w, http.StatusInternalServerError, "failed to retrieve user information")
				return
			}
			resp.User = user
		}

	case models.AuthStatusFailed:
		if session.ErrorMessage.Valid {
			resp.Error = session.ErrorMessage.String
		}
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Logout revokes a session: stored tokens are deleted along with the
// session itself.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := bearerToken(r)
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	h.logger.Info("revoking session", zap.String("session_id", sessionID))

	session, err := h.db.GetAuthSession(r.Context(), sessionID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "session not found")
		return
	}

	if session.UserID.Valid {
		if err := h.db.DeleteOAuthToken(r.Context(), session.UserID.Int64); err != nil {
			h.logger.Warn("failed to delete oauth token",
				zap.Int64("user_id", session.UserID.Int64),
				zap.Error(err),
			)
		}
	}

	if err := h.db.DeleteAuthSession(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to delete auth session", zap.String("session_id", sessionID), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// renderSuccess renders the post-login HTML page
func (h *Handlers) renderSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	html := `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Signed In</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #1d976c 0%, #2f5233 100%);
        }
        .container {
            background: white;
            padding: 3rem;
            border-radius: 10px;
            box-shadow: 0 10px 40px rgba(0,0,0,0.2);
            text-align: center;
            max-width: 400px;
        }
        h1 { color: #2f5233; margin: 0 0 0.5rem; }
        p { color: #555; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>You're in!</h1>
        <p>Sign-in complete. You can close this window and head back to the dashboard.</p>
    </div>
</body>
</html>`

	if _, err := w.Write([]byte(html)); err != nil {
		h.logger.Error("failed to write success page", zap.Error(err))
	}
}

// renderError renders an error HTML page
func (h *Handlers) renderError(w http.ResponseWriter, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #8e2de2 0%%, #c0392b 100%%);
        }
        .container {
            background: white;
            padding: 3rem;
            border-radius: 10px;
            box-shadow: 0 10px 40px rgba(0,0,0,0.2);
            text-align: center;
            max-width: 400px;
        }
        h1 { color: #c0392b; margin: 0 0 0.5rem; }
        p { color: #555; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, title, title, message)

	if _, err := w.Write([]byte(html)); err != nil {
		h.logger.Error("failed to write error page", zap.Error(err))
	}
}
