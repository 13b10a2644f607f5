package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
)

// MockPoolServer represents a mock pool backend API for testing.
type MockPoolServer struct {
	Server *httptest.Server

	// APIKey is the server key accepted on data endpoints.
	APIKey string

	TokenCalls       int
	ProfileCalls     int
	TournamentCalls  int
	FieldCalls       int
	LeaderboardCalls int
	StandingsCalls   int
	EntryCalls       int
}

// PoolTokenResponse represents the OAuth token response from the pool backend.
type PoolTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// PoolMemberResponse represents the member profile response from the pool backend.
type PoolMemberResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatarUrl"`
	Admin       bool   `json:"admin"`
}

// PoolErrorResponse represents an error response from the pool backend.
type PoolErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type mockGolfer struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	WorldRank int    `json:"worldRank"`
}

type mockTournament struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Course        string `json:"course"`
	Status        string `json:"status"`
	StartsAt      string `json:"startsAt"`
	EndsAt        string `json:"endsAt"`
	DraftClosesAt string `json:"draftClosesAt"`
}

type mockLeaderboardRow struct {
	Position   int    `json:"position"`
	GolferID   int64  `json:"golferId"`
	GolferName string `json:"golferName"`
	Total      int    `json:"total"`
	Today      int    `json:"today"`
	Thru       int    `json:"thru"`
	Round      int    `json:"round"`
	Status     string `json:"status"`
}

type mockEntry struct {
	ID           int64   `json:"id"`
	TournamentID int64   `json:"tournamentId"`
	PickIDs      []int64 `json:"pickIds"`
	Status       string  `json:"status"`
	SubmittedAt  string  `json:"submittedAt"`
}

// NewMockPoolServer creates a new mock pool backend server.
// It handles token exchange, member profile, pool data, and entry endpoints.
func NewMockPoolServer() *MockPoolServer {
	mps := &MockPoolServer{APIKey: "test_api_key"}

	mux := http.NewServeMux()

	// Token exchange endpoint
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		mps.TokenCalls++

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		code := r.FormValue("code")
		if code == "" {
			// Refresh grants carry a refresh_token instead of a code
			if r.FormValue("refresh_token") == "mock_refresh_token_456" {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(PoolTokenResponse{
					AccessToken:  "mock_access_token_refreshed",
					TokenType:    "Bearer",
					ExpiresIn:    3600,
					RefreshToken: "mock_refresh_token_789",
					Scope:        "profile email entries",
				})
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Simulate different responses based on the code
		switch code {
		case "valid_code":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PoolTokenResponse{
				AccessToken:  "mock_access_token_123",
				TokenType:    "Bearer",
				ExpiresIn:    3600,
				RefreshToken: "mock_refresh_token_456",
				Scope:        "profile email entries",
			})

		case "bad_profile_code":
			// Exchange succeeds but the issued token is rejected by /members/me
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PoolTokenResponse{
				AccessToken:  "invalid_token",
				TokenType:    "Bearer",
				ExpiresIn:    3600,
				RefreshToken: "mock_refresh_token_456",
				Scope:        "profile email entries",
			})

		case "error_code":
			w.WriteHeader(http.StatusBadRequest)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PoolErrorResponse{
				Error:            "invalid_grant",
				ErrorDescription: "Invalid authorization code",
			})

		case "server_error":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))

		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PoolErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Unknown code",
			})
		}
	})

	// Member profile endpoint
	mux.HandleFunc("/members/me", func(w http.ResponseWriter, r *http.Request) {
		mps.ProfileCalls++

		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PoolErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "Missing or invalid authorization header",
			})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		// Simulate different responses based on the token
		switch token {
		case "mock_access_token_123":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PoolMemberResponse{
				ID:          "pm_7741",
				Username:    "birdiehunter",
				DisplayName: "Birdie Hunter",
				Email:       "birdiehunter@example.com",
				AvatarURL:   "https://cdn.fairwayclub.golf/avatars/pm_7741.png",
			})

		case "invalid_token":
			w.WriteHeader(http.StatusUnauthorized)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PoolErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "Invalid token",
			})

		case "not_found":
			w.WriteHeader(http.StatusNotFound)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PoolErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Member not found",
			})

		case "server_error":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))

		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PoolErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Unknown token",
			})
		}
	})

	// Pool data endpoints (server API key)
	mux.HandleFunc("/tournaments", func(w http.ResponseWriter, r *http.Request) {
		mps.TournamentCalls++
		if !mps.checkAPIKey(w, r) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]mockTournament{
			{
				ID: 301, Name: "Pinehurst Invitational", Course: "Pinehurst No. 2",
				Status: "live", StartsAt: "2026-06-11T12:00:00Z", EndsAt: "2026-06-14T23:00:00Z",
				DraftClosesAt: "2026-06-11T11:00:00Z",
			},
			{
				ID: 302, Name: "Coastal Open", Course: "Harbour Dunes",
				Status: "upcoming", StartsAt: "2026-06-18T12:00:00Z", EndsAt: "2026-06-21T23:00:00Z",
				DraftClosesAt: "2026-06-18T11:00:00Z",
			},
		})
	})

	mux.HandleFunc("/tournaments/active", func(w http.ResponseWriter, r *http.Request) {
		mps.TournamentCalls++
		if !mps.checkAPIKey(w, r) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockTournament{
			ID: 301, Name: "Pinehurst Invitational", Course: "Pinehurst No. 2",
			Status: "live", StartsAt: "2026-06-11T12:00:00Z", EndsAt: "2026-06-14T23:00:00Z",
			DraftClosesAt: "2026-06-11T11:00:00Z",
		})
	})

	mux.HandleFunc("/tournaments/301/field", func(w http.ResponseWriter, r *http.Request) {
		mps.FieldCalls++
		if !mps.checkAPIKey(w, r) {
			return
		}

		golfers := make([]mockGolfer, 10)
		for i := range golfers {
			golfers[i] = mockGolfer{
				ID:        int64(101 + i),
				Name:      fmt.Sprintf("Golfer %d", 101+i),
				Country:   "USA",
				WorldRank: i + 1,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(golfers)
	})

	mux.HandleFunc("/tournaments/301/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		mps.LeaderboardCalls++
		if !mps.checkAPIKey(w, r) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"tournamentId": 301,
			"rows": []mockLeaderboardRow{
				{Position: 1, GolferID: 101, GolferName: "Golfer 101", Total: -12, Today: -4, Thru: 18, Round: 3, Status: "active"},
				{Position: 2, GolferID: 104, GolferName: "Golfer 104", Total: -10, Today: -2, Thru: 16, Round: 3, Status: "active"},
				{Position: 3, GolferID: 102, GolferName: "Golfer 102", Total: -8, Today: 1, Thru: 18, Round: 3, Status: "active"},
			},
		})
	})

	mux.HandleFunc("/standings", func(w http.ResponseWriter, r *http.Request) {
		mps.StandingsCalls++
		if !mps.checkAPIKey(w, r) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"rank": 1, "memberId": "pm_7741", "memberName": "Birdie Hunter", "points": 420, "wins": 2, "played": 11},
			{"rank": 2, "memberId": "pm_1180", "memberName": "Sandbagger", "points": 385, "wins": 1, "played": 11},
		})
	})

	// Entry endpoints (member OAuth token)
	mux.HandleFunc("/entries", func(w http.ResponseWriter, r *http.Request) {
		mps.EntryCalls++
		if !mps.checkBearer(w, r) {
			return
		}

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			TournamentID int64   `json:"tournamentId"`
			PickIDs      []int64 `json:"pickIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusCreated)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockEntry{
			ID:           9001,
			TournamentID: req.TournamentID,
			PickIDs:      req.PickIDs,
			Status:       "submitted",
			SubmittedAt:  "2026-06-11T10:30:00Z",
		})
	})

	mux.HandleFunc("/tournaments/301/entry", func(w http.ResponseWriter, r *http.Request) {
		mps.EntryCalls++
		if !mps.checkBearer(w, r) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockEntry{
			ID:           9001,
			TournamentID: 301,
			PickIDs:      []int64{101, 102, 103, 104, 105, 106, 107, 108},
			Status:       "submitted",
			SubmittedAt:  "2026-06-11T10:30:00Z",
		})
	})

	mux.HandleFunc("/entries/9001", func(w http.ResponseWriter, r *http.Request) {
		mps.EntryCalls++
		if !mps.checkBearer(w, r) {
			return
		}

		switch r.Method {
		case http.MethodPut:
			var req struct {
				PickIDs []int64 `json:"pickIds"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(mockEntry{
				ID:           9001,
				TournamentID: 301,
				PickIDs:      req.PickIDs,
				Status:       "submitted",
				SubmittedAt:  "2026-06-11T10:30:00Z",
			})

		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mps.Server = httptest.NewServer(mux)
	return mps
}

// checkAPIKey rejects requests without the expected server API key.
func (mps *MockPoolServer) checkAPIKey(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-API-Key") != mps.APIKey {
		w.WriteHeader(http.StatusUnauthorized)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PoolErrorResponse{
			Error:            "unauthorized",
			ErrorDescription: "Missing or invalid API key",
		})
		return false
	}
	return true
}

// checkBearer rejects requests without a valid member bearer token.
func (mps *MockPoolServer) checkBearer(w http.ResponseWriter, r *http.Request) bool {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "Bearer mock_access_token_123" {
		w.WriteHeader(http.StatusUnauthorized)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PoolErrorResponse{
			Error:            "unauthorized",
			ErrorDescription: "Missing or invalid authorization header",
		})
		return false
	}
	return true
}

// Close closes the mock server.
func (mps *MockPoolServer) Close() {
	if mps.Server != nil {
		mps.Server.Close()
	}
}

// GetTokenURL returns the token exchange endpoint URL.
func (mps *MockPoolServer) GetTokenURL() string {
	return fmt.Sprintf("%s/oauth/token", mps.Server.URL)
}

// ResetCallCounts resets the call counters.
func (mps *MockPoolServer) ResetCallCounts() {
	mps.TokenCalls = 0
	mps.ProfileCalls = 0
	mps.TournamentCalls = 0
	mps.FieldCalls = 0
	mps.LeaderboardCalls = 0
	mps.StandingsCalls = 0
	mps.EntryCalls = 0
}
