// Package auth provides OAuth2 authentication against the pool backend,
// including token exchange, member profile retrieval, token
// encryption/decryption, and the rate-limited pool data client.
package auth

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/fairwayclub/golfpoolserver/internal/config"
	"github.com/fairwayclub/golfpoolserver/internal/models"
	"github.com/fairwayclub/golfpoolserver/internal/ratelimit"
)

// PoolMember represents a pool member profile from the pool backend
type PoolMember struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatarUrl"`
	Admin       bool   `json:"admin"`
}

// PoolTournament represents a tournament from the pool backend
type PoolTournament struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Course        string    `json:"course"`
	Status        string    `json:"status"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
	DraftClosesAt time.Time `json:"draftClosesAt"`
}

// ToModel converts the wire tournament to the local model
func (t *PoolTournament) ToModel() *models.Tournament {
	return &models.Tournament{
		ID:            t.ID,
		Name:          t.Name,
		Course:        t.Course,
		Status:        models.TournamentStatus(t.Status),
		StartsAt:      t.StartsAt,
		EndsAt:        t.EndsAt,
		DraftClosesAt: t.DraftClosesAt,
	}
}

// PoolGolfer represents a golfer in a tournament field from the pool backend
type PoolGolfer struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	WorldRank int    `json:"worldRank"`
}

// ToModel converts the wire golfer to the local model
func (g *PoolGolfer) ToModel() *models.Golfer {
	return &models.Golfer{
		ID:        g.ID,
		Name:      g.Name,
		Country:   g.Country,
		WorldRank: g.WorldRank,
	}
}

// PoolLeaderboardRow represents one leaderboard row from the pool backend
type PoolLeaderboardRow struct {
	Position   int    `json:"position"`
	GolferID   int64  `json:"golferId"`
	GolferName string `json:"golferName"`
	Total      int    `json:"total"`
	Today      int    `json:"today"`
	Thru       int    `json:"thru"`
	Round      int    `json:"round"`
	Status     string `json:"status"`
}

// PoolLeaderboard represents a live leaderboard snapshot from the pool backend
type PoolLeaderboard struct {
	TournamentID int64                `json:"tournamentId"`
	Rows         []PoolLeaderboardRow `json:"rows"`
}

// ToModel converts the wire leaderboard to the local model
func (l *PoolLeaderboard) ToModel() *models.Leaderboard {
	rows := make([]models.LeaderboardRow, len(l.Rows))
	for i, r := range l.Rows {
		rows[i] = models.LeaderboardRow{
			Position:   r.Position,
			GolferID:   r.GolferID,
			GolferName: r.GolferName,
			Total:      r.Total,
			Today:      r.Today,
			Thru:       r.Thru,
			Round:      r.Round,
			Status:     r.Status,
		}
	}
	return &models.Leaderboard{
		TournamentID: l.TournamentID,
		Rows:         rows,
		FetchedAt:    time.Now(),
	}
}

// PoolStandingsRow represents one season standings row from the pool backend
type PoolStandingsRow struct {
	Rank       int    `json:"rank"`
	MemberID   string `json:"memberId"`
	MemberName string `json:"memberName"`
	Points     int    `json:"points"`
	Wins       int    `json:"wins"`
	Played     int    `json:"played"`
}

// ToModel converts the wire standings row to the local model
func (s *PoolStandingsRow) ToModel() *models.StandingsRow {
	return &models.StandingsRow{
		Rank:       s.Rank,
		MemberID:   s.MemberID,
		MemberName: s.MemberName,
		Points:     s.Points,
		Wins:       s.Wins,
		Played:     s.Played,
	}
}

// PoolEntry represents a submitted entry as held by the pool backend
type PoolEntry struct {
	ID           int64     `json:"id"`
	TournamentID int64     `json:"tournamentId"`
	PickIDs      []int64   `json:"pickIds"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// PoolClient handles OAuth and data access against the pool backend
type PoolClient struct {
	config        *oauth2.Config
	encryptionKey []byte
	logger        *zap.Logger
	baseURL       string // Pool API base URL (configurable for testing)
	apiKey        string // Server API key for pool data endpoints
	rateLimiter   *ratelimit.RateLimiter
}

// NewPoolClient creates a new pool backend client
func NewPoolClient(cfg *config.Config, logger *zap.Logger) *PoolClient {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Pool.ClientID,
		ClientSecret: cfg.Pool.ClientSecret,
		RedirectURL:  cfg.Pool.RedirectURI,
		Scopes:       cfg.Pool.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.Pool.AuthURL,
			TokenURL: cfg.Pool.TokenURL,
		},
	}

	return &PoolClient{
		config:        oauthConfig,
		encryptionKey: cfg.Security.TokenEncryptionKey,
		logger:        logger,
		baseURL:       cfg.Pool.BaseURL,
		apiKey:        cfg.Pool.APIKey,
	}
}

// GetAuthURL constructs the pool backend OAuth authorization URL
func (pc *PoolClient) GetAuthURL(state string) string {
	return pc.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for an access token
func (pc *PoolClient) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := pc.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	pc.logger.Debug("successfully exchanged code for token",
		zap.String("token_type", token.TokenType),
		zap.Time("expiry", token.Expiry),
	)

	return token, nil
}

// GetMemberProfile fetches the authenticated member's profile from the pool backend
func (pc *PoolClient) GetMemberProfile(ctx context.Context, accessToken string) (*PoolMember, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pc.baseURL+"/members/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member profile: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			pc.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	var member PoolMember
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return nil, fmt.Errorf("failed to decode member profile: %w", err)
	}

	pc.logger.Debug("fetched member profile from pool backend",
		zap.String("member_id", member.ID),
		zap.String("username", member.Username),
	)

	return &member, nil
}

// EncryptToken encrypts a token using AES-256-GCM
func (pc *PoolClient) EncryptToken(plaintext string) (string, error) {
	block, err := aes.NewCipher(pc.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptToken decrypts a token using AES-256-GCM
func (pc *PoolClient) DecryptToken(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(pc.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// SetRateLimiter sets the rate limiter for the pool client
func (pc *PoolClient) SetRateLimiter(rl *ratelimit.RateLimiter) {
	pc.rateLimiter = rl
}

// SetBaseURL sets the base URL for the pool API (used for testing)
func (pc *PoolClient) SetBaseURL(url string) {
	pc.baseURL = url
	// Also update OAuth token endpoint for testing
	pc.config.Endpoint.TokenURL = url + "/oauth/token"
}

// RefreshToken refreshes an OAuth token using the refresh token
func (pc *PoolClient) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	token := &oauth2.Token{
		RefreshToken: refreshToken,
	}

	tokenSource := pc.config.TokenSource(ctx, token)
	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	pc.logger.Debug("successfully refreshed OAuth token",
		zap.Time("new_expiry", newToken.Expiry),
	)

	return newToken, nil
}

// RefreshIfNeeded checks if token is expiring soon and refreshes if needed
// Returns: (accessToken, wasRefreshed, error)
func (pc *PoolClient) RefreshIfNeeded(ctx context.Context, oauthToken *models.OAuthToken) (string, bool, error) {
	// Check if token expires within 5 minutes
	expiryBuffer := 5 * time.Minute
	if time.Now().Add(expiryBuffer).After(oauthToken.Expiry) {
		pc.logger.Info("OAuth token expiring soon, refreshing",
			zap.Time("expiry", oauthToken.Expiry),
		)

		// Decrypt refresh token
		refreshToken, err := pc.DecryptToken(oauthToken.RefreshToken)
		if err != nil {
			return "", false, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}

		// Refresh the token
		newToken, err := pc.RefreshToken(ctx, refreshToken)
		if err != nil {
			return "", false, fmt.Errorf("failed to refresh token: %w", err)
		}

		// Encrypt new tokens
		encryptedAccessToken, err := pc.EncryptToken(newToken.AccessToken)
		if err != nil {
			return "", false, fmt.Errorf("failed to encrypt access token: %w", err)
		}

		encryptedRefreshToken, err := pc.EncryptToken(newToken.RefreshToken)
		if err != nil {
			return "", false, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}

		// Update the oauth token struct (caller should save to database)
		oauthToken.AccessToken = encryptedAccessToken
		oauthToken.RefreshToken = encryptedRefreshToken
		oauthToken.Expiry = newToken.Expiry

		return newToken.AccessToken, true, nil
	}

	// Token is still valid, decrypt and return
	accessToken, err := pc.DecryptToken(oauthToken.AccessToken)
	if err != nil {
		return "", false, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	return accessToken, false, nil
}

// makeAPIRequest makes a rate-limited HTTP request to the pool API using
// the member's OAuth access token
func (pc *PoolClient) makeAPIRequest(ctx context.Context, method, endpoint, accessToken string, body io.Reader) (*http.Response, error) {
	// Wait for rate limit if limiter is set
	if pc.rateLimiter != nil {
		if err := pc.rateLimiter.Wait(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, pc.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	// Update rate limit info from headers
	if pc.rateLimiter != nil {
		pc.rateLimiter.UpdateFromHeaders(endpoint, resp.Header)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		defer func() { _ = resp.Body.Close() }()
		if pc.rateLimiter != nil {
			_ = pc.rateLimiter.HandleRateLimitResponse(endpoint, resp.Header)
		}
		return nil, fmt.Errorf("rate limited by pool API")
	}

	return resp, nil
}

// makeAPIRequestWithKey makes a rate-limited HTTP request using the server
// API key. Pool data endpoints (schedule, field, leaderboard, standings) are
// served to the dashboard as a whole, not per member.
func (pc *PoolClient) makeAPIRequestWithKey(ctx context.Context, method, endpoint string) (*http.Response, error) {
	if pc.apiKey == "" {
		return nil, fmt.Errorf("pool API key is not configured")
	}

	// Wait for rate limit if limiter is set
	if pc.rateLimiter != nil {
		if err := pc.rateLimiter.Wait(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, pc.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-Key", pc.apiKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	// Update rate limit info from headers
	if pc.rateLimiter != nil {
		pc.rateLimiter.UpdateFromHeaders(endpoint, resp.Header)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		defer func() { _ = resp.Body.Close() }()
		if pc.rateLimiter != nil {
			_ = pc.rateLimiter.HandleRateLimitResponse(endpoint, resp.Header)
		}
		return nil, fmt.Errorf("rate limited by pool API")
	}

	return resp, nil
}

// GetTournaments fetches the tournament schedule from the pool backend
func (pc *PoolClient) GetTournaments(ctx context.Context) ([]*PoolTournament, error) {
	resp, err := pc.makeAPIRequestWithKey(ctx, "GET", "/tournaments")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	var tournaments []*PoolTournament
	if err := json.NewDecoder(resp.Body).Decode(&tournaments); err != nil {
		return nil, fmt.Errorf("failed to decode tournaments: %w", err)
	}

	pc.logger.Debug("fetched tournament schedule from pool backend",
		zap.Int("tournament_count", len(tournaments)),
	)

	return tournaments, nil
}

// GetActiveTournament fetches the currently active tournament, or nil if
// no tournament is live or upcoming
func (pc *PoolClient) GetActiveTournament(ctx context.Context) (*PoolTournament, error) {
	resp, err := pc.makeAPIRequestWithKey(ctx, "GET", "/tournaments/active")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		pc.logger.Debug("no active tournament on pool backend")
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	var tournament PoolTournament
	if err := json.NewDecoder(resp.Body).Decode(&tournament); err != nil {
		return nil, fmt.Errorf("failed to decode tournament: %w", err)
	}

	return &tournament, nil
}

// GetTournamentField fetches the field of golfers for a tournament
func (pc *PoolClient) GetTournamentField(ctx context.Context, tournamentID int64) ([]*PoolGolfer, error) {
	endpoint := "/tournaments/" + strconv.FormatInt(tournamentID, 10) + "/field"
	resp, err := pc.makeAPIRequestWithKey(ctx, "GET", endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	var field []*PoolGolfer
	if err := json.NewDecoder(resp.Body).Decode(&field); err != nil {
		return nil, fmt.Errorf("failed to decode tournament field: %w", err)
	}

	pc.logger.Debug("fetched tournament field from pool backend",
		zap.Int64("tournament_id", tournamentID),
		zap.Int("golfer_count", len(field)),
	)

	return field, nil
}

// GetLeaderboard fetches the live leaderboard for a tournament
func (pc *PoolClient) GetLeaderboard(ctx context.Context, tournamentID int64) (*PoolLeaderboard, error) {
	endpoint := "/tournaments/" + strconv.FormatInt(tournamentID, 10) + "/leaderboard"
	resp, err := pc.makeAPIRequestWithKey(ctx, "GET", endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	var leaderboard PoolLeaderboard
	if err := json.NewDecoder(resp.Body).Decode(&leaderboard); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}

	pc.logger.Debug("fetched leaderboard from pool backend",
		zap.Int64("tournament_id", tournamentID),
		zap.Int("row_count", len(leaderboard.Rows)),
	)

	return &leaderboard, nil
}

// GetStandings fetches the season standings from the pool backend
func (pc *PoolClient) GetStandings(ctx context.Context) ([]*PoolStandingsRow, error) {
	resp, err := pc.makeAPIRequestWithKey(ctx, "GET", "/standings")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	var standings []*PoolStandingsRow
	if err := json.NewDecoder(resp.Body).Decode(&standings); err != nil {
		return nil, fmt.Errorf("failed to decode standings: %w", err)
	}

	pc.logger.Debug("fetched season standings from pool backend",
		zap.Int("row_count", len(standings)),
	)

	return standings, nil
}

// entryRequest is the request body for entry submit/update calls
type entryRequest struct {
	TournamentID int64   `json:"tournamentId"`
	PickIDs      []int64 `json:"pickIds"`
}

// SubmitEntry submits a member's entry for a tournament on their behalf
func (pc *PoolClient) SubmitEntry(ctx context.Context, accessToken string, tournamentID int64, pickIDs []int64) (*PoolEntry, error) {
	payload, err := json.Marshal(entryRequest{TournamentID: tournamentID, PickIDs: pickIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}

	resp, err := pc.makeAPIRequest(ctx, "POST", "/entries", accessToken, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	var entry PoolEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}

	pc.logger.Info("submitted entry to pool backend",
		zap.Int64("tournament_id", tournamentID),
		zap.Int64("entry_id", entry.ID),
	)

	return &entry, nil
}

// GetEntry fetches the member's entry for a tournament, or nil if none exists
func (pc *PoolClient) GetEntry(ctx context.Context, accessToken string, tournamentID int64) (*PoolEntry, error) {
	endpoint := "/tournaments/" + strconv.FormatInt(tournamentID, 10) + "/entry"
	resp, err := pc.makeAPIRequest(ctx, "GET", endpoint, accessToken, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	var entry PoolEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}

	return &entry, nil
}

// UpdateEntry replaces the picks on an existing entry
func (pc *PoolClient) UpdateEntry(ctx context.Context, accessToken string, entryID int64, pickIDs []int64) (*PoolEntry, error) {
	payload, err := json.Marshal(entryRequest{PickIDs: pickIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}

	endpoint := "/entries/" + strconv.FormatInt(entryID, 10)
	resp, err := pc.makeAPIRequest(ctx, "PUT", endpoint, accessToken, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	var entry PoolEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}

	pc.logger.Info("updated entry on pool backend",
		zap.Int64("entry_id", entryID),
	)

	return &entry, nil
}

// WithdrawEntry withdraws an entry on the member's behalf
func (pc *PoolClient) WithdrawEntry(ctx context.Context, accessToken string, entryID int64) error {
	endpoint := "/entries/" + strconv.FormatInt(entryID, 10)
	resp, err := pc.makeAPIRequest(ctx, "DELETE", endpoint, accessToken, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pool API returned status %d: %s", resp.StatusCode, string(body))
	}

	pc.logger.Info("withdrew entry on pool backend",
		zap.Int64("entry_id", entryID),
	)

	return nil
}
