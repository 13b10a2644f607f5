package testutil

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fairwayclub/golfpoolserver/internal/config"
	"github.com/fairwayclub/golfpoolserver/internal/models"
)

// GenerateUser creates a test user with the given pool member ID.
// Optional fields (display name, email, avatar) are set to test values.
func GenerateUser(memberID string) *models.User {
	return &models.User{
		PoolMemberID: memberID,
		Username:     fmt.Sprintf("testuser_%s", memberID),
		DisplayName:  sql.NullString{String: "Test User", Valid: true},
		Email:        sql.NullString{String: fmt.Sprintf("%s@test.com", memberID), Valid: true},
		AvatarURL:    sql.NullString{String: "https://cdn.test/avatar.png", Valid: true},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

// GenerateUserWithNulls creates a test user with null optional fields.
func GenerateUserWithNulls(memberID string) *models.User {
	return &models.User{
		PoolMemberID: memberID,
		Username:     fmt.Sprintf("testuser_%s", memberID),
		DisplayName:  sql.NullString{Valid: false},
		Email:        sql.NullString{Valid: false},
		AvatarURL:    sql.NullString{Valid: false},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

// GenerateOAuthToken creates a test OAuth token for the given user ID.
// The token is encrypted (not plaintext) and has a future expiry.
func GenerateOAuthToken(userID int64) *models.OAuthToken {
	return &models.OAuthToken{
		UserID:       userID,
		AccessToken:  "encrypted_access_token_test_value",
		RefreshToken: "encrypted_refresh_token_test_value",
		TokenType:    "Bearer",
		Expiry:       time.Now().UTC().Add(24 * time.Hour),
		Scope:        "profile email entries",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

// GenerateExpiredOAuthToken creates a test OAuth token that is already expired.
func GenerateExpiredOAuthToken(userID int64) *models.OAuthToken {
	return &models.OAuthToken{
		UserID:       userID,
		AccessToken:  "expired_access_token",
		RefreshToken: "expired_refresh_token",
		TokenType:    "Bearer",
		Expiry:       time.Now().UTC().Add(-24 * time.Hour), // Expired
		Scope:        "profile email",
		CreatedAt:    time.Now().UTC().Add(-48 * time.Hour),
		UpdatedAt:    time.Now().UTC().Add(-48 * time.Hour),
	}
}

// GenerateAuthSession creates a test auth session with the given session ID and status.
func GenerateAuthSession(sessionID string, status string) *models.AuthSession {
	return &models.AuthSession{
		SessionID:    sessionID,
		UserID:       sql.NullInt64{Valid: false}, // Null by default
		AuthStatus:   status,
		ErrorMessage: sql.NullString{Valid: false},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(24 * time.Hour),
	}
}

// GenerateAuthSessionWithUser creates an authenticated session with a user ID.
func GenerateAuthSessionWithUser(sessionID string, userID int64) *models.AuthSession {
	return &models.AuthSession{
		SessionID:    sessionID,
		UserID:       sql.NullInt64{Int64: userID, Valid: true},
		AuthStatus:   "authenticated",
		ErrorMessage: sql.NullString{Valid: false},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(24 * time.Hour),
	}
}

// GenerateExpiredAuthSession creates an auth session that is already expired.
func GenerateExpiredAuthSession(sessionID string) *models.AuthSession {
	return &models.AuthSession{
		SessionID:    sessionID,
		UserID:       sql.NullInt64{Valid: false},
		AuthStatus:   "pending",
		ErrorMessage: sql.NullString{Valid: false},
		CreatedAt:    time.Now().UTC().Add(-48 * time.Hour),
		UpdatedAt:    time.Now().UTC().Add(-48 * time.Hour),
		ExpiresAt:    time.Now().UTC().Add(-24 * time.Hour), // Expired
	}
}

// GenerateOAuthState creates a test OAuth state for the given session ID.
func GenerateOAuthState(sessionID string) *models.OAuthState {
	return &models.OAuthState{
		State:     GenerateRandomState(),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
}

// GenerateExpiredOAuthState creates an OAuth state that is already expired.
func GenerateExpiredOAuthState(sessionID string) *models.OAuthState {
	return &models.OAuthState{
		State:     GenerateRandomState(),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC().Add(-15 * time.Minute),
		ExpiresAt: time.Now().UTC().Add(-5 * time.Minute), // Expired
	}
}

// GenerateTournament creates a live test tournament with an open draft window.
func GenerateTournament(id int64) *models.Tournament {
	return &models.Tournament{
		ID:            id,
		Name:          fmt.Sprintf("Test Invitational %d", id),
		Course:        "Pine Hollow Golf Club",
		Status:        models.TournamentStatusLive,
		StartsAt:      time.Now().UTC().Add(-24 * time.Hour),
		EndsAt:        time.Now().UTC().Add(72 * time.Hour),
		DraftClosesAt: time.Now().UTC().Add(12 * time.Hour),
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}

// GenerateGolfers creates n sequential test golfers starting at the given ID.
func GenerateGolfers(startID int64, n int) []*models.Golfer {
	golfers := make([]*models.Golfer, n)
	for i := 0; i < n; i++ {
		golfers[i] = &models.Golfer{
			ID:        startID + int64(i),
			Name:      fmt.Sprintf("Golfer %d", startID+int64(i)),
			Country:   "USA",
			WorldRank: i + 1,
		}
	}
	return golfers
}

// GenerateEntry creates a test entry with a full set of picks.
func GenerateEntry(userID, tournamentID int64) *models.Entry {
	picks := make([]int64, models.EntrySlotCount)
	for i := range picks {
		picks[i] = 101 + int64(i)
	}
	return &models.Entry{
		UserID:       userID,
		TournamentID: tournamentID,
		PickIDs:      picks,
		Status:       models.EntryStatusSubmitted,
		SubmittedAt:  time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

// GenerateRandomState generates a random state string (32 bytes, hex-encoded).
func GenerateRandomState() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random state: %v", err))
	}
	return hex.EncodeToString(b)
}

// GenerateSessionID generates a random session ID (UUID).
func GenerateSessionID() string {
	return uuid.New().String()
}

// GenerateEncryptionKey generates a 32-byte encryption key for testing.
func GenerateEncryptionKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("failed to generate encryption key: %v", err))
	}
	return key
}

// GenerateTestConfig creates a test configuration with valid values.
// Uses a generated encryption key and test database credentials.
func GenerateTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			HTTPPort: "8080",
			Host:     "localhost",
			Env:      "test",
		},
		Pool: config.PoolConfig{
			BaseURL:      "https://api.fairwayclub.golf/v1",
			AuthURL:      "https://api.fairwayclub.golf/v1/oauth/authorize",
			TokenURL:     "https://api.fairwayclub.golf/v1/oauth/token",
			ClientID:     "test_client_id",
			ClientSecret: "test_client_secret",
			RedirectURI:  "http://localhost:8080/auth/callback",
			Scopes:       []string{"profile", "email", "entries"},
			APIKey:       "test_api_key",
		},
		Database: config.DatabaseConfig{
			Host:         "localhost",
			Port:         "5432",
			User:         "testuser",
			Password:     "testpass",
			Name:         "testdb",
			SSLMode:      "disable",
			MaxOpenConns: 5,
			MaxIdleConns: 2,
		},
		Security: config.SecurityConfig{
			TokenEncryptionKey: GenerateEncryptionKey(),
			SessionExpiryHours: 24,
			StateExpiryMinutes: 10,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "console",
		},
		WebSocket: config.WebSocketConfig{
			Enabled:             true,
			PollIntervalSeconds: 60,
			MaxClientsPerUser:   3,
		},
	}
}
