package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/auth"
	"github.com/fairwayclub/golfpoolserver/internal/database"
	"github.com/fairwayclub/golfpoolserver/internal/httpapi"
	"github.com/fairwayclub/golfpoolserver/internal/ratelimit"
	"github.com/fairwayclub/golfpoolserver/internal/testutil"
	"github.com/fairwayclub/golfpoolserver/internal/websocket"
)

// testServer runs the full service stack against a containerized
// Postgres and a mock pool backend, reachable over real HTTP
type testServer struct {
	db         *database.DB
	api        *httptest.Server
	mockPool   *testutil.MockPoolServer
	poolClient *auth.PoolClient
	hub        *websocket.Hub
	cleanup    func()
}

func setupIntegrationTest(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, dbCleanup, err := setupTestDB(ctx)
	require.NoError(t, err)

	mockPool := testutil.NewMockPoolServer()

	cfg := testutil.GenerateTestConfig()
	logger := zap.NewNop()

	poolClient := auth.NewPoolClient(cfg, logger)
	poolClient.SetBaseURL(mockPool.Server.URL)
	poolClient.SetRateLimiter(ratelimit.NewRateLimiter(logger))

	stateManager := auth.NewStateManager(db, cfg.Security.StateExpiryMinutes)
	oauthHandler := auth.NewOAuthHandler(db, poolClient, stateManager, logger)
	cacheManager := httpapi.NewCacheManager(db, logger)

	handlers := httpapi.NewHandlers(
		db, poolClient, stateManager, oauthHandler, cacheManager,
		clockwork.NewRealClock(), logger, cfg.Security.SessionExpiryHours,
	)

	hub := websocket.NewHub(logger, cfg.WebSocket.MaxClientsPerUser, true)
	handlers.SetWebSocketHub(hub)

	api := httptest.NewServer(httpapi.NewRouter(handlers, logger))

	return &testServer{
		db:         db,
		api:        api,
		mockPool:   mockPool,
		poolClient: poolClient,
		hub:        hub,
		cleanup: func() {
			api.Close()
			hub.Close()
			mockPool.Close()
			dbCleanup()
		},
	}
}

// doJSON performs an HTTP request against the running API and decodes
// the JSON response into out when it is non-nil
func (ts *testServer) doJSON(t *testing.T, method, path, sessionID string, body, out interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, ts.api.URL+path, reader)
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set("Authorization", "Bearer "+sessionID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp
}

// login runs the complete OAuth flow against the mock pool backend and
// returns an authenticated session ID
func (ts *testServer) login(t *testing.T) string {
	t.Helper()

	var login struct {
		AuthURL   string `json:"authUrl"`
		SessionID string `json:"sessionId"`
		State     string `json:"state"`
	}
	resp := ts.doJSON(t, "POST", "/auth/login", "", nil, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, login.State)

	// Simulate the browser redirect back from the pool backend
	callbackResp, err := http.Get(ts.api.URL + "/auth/callback?code=valid_code&state=" + login.State)
	require.NoError(t, err)
	defer callbackResp.Body.Close()
	require.Equal(t, http.StatusOK, callbackResp.StatusCode)

	return login.SessionID
}
