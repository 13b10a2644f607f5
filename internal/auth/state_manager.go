package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fairwayclub/golfpoolserver/internal/database"
	"github.com/fairwayclub/golfpoolserver/internal/models"
)

// stateBytes of entropy per state token; hex-encoded it doubles in length
const stateBytes = 32

// StateManager issues and redeems the OAuth state tokens that tie a
// pool sign-in callback back to the dashboard session that started it
type StateManager struct {
	db  *database.DB
	ttl time.Duration
}

// NewStateManager creates a new state manager. States older than
// stateExpiryMinutes are rejected at validation time.
func NewStateManager(db *database.DB, stateExpiryMinutes int) *StateManager {
	return &StateManager{
		db:  db,
		ttl: time.Duration(stateExpiryMinutes) * time.Minute,
	}
}

// GenerateState returns a cryptographically random, URL-safe state token
func (sm *StateManager) GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}

	return hex.EncodeToString(b), nil
}

// StoreState persists a state bound to the session that requested it
func (sm *StateManager) StoreState(ctx context.Context, state, sessionID string) error {
	oauthState := &models.OAuthState{
		State:     state,
		SessionID: sessionID,
		ExpiresAt: time.Now().Add(sm.ttl),
	}

	if err := sm.db.CreateOAuthState(ctx, oauthState); err != nil {
		return fmt.Errorf("failed to store state: %w", err)
	}

	return nil
}

// ValidateState redeems a state and returns the session it belongs to.
// States are single-use: a replayed or expired state fails here.
func (sm *StateManager) ValidateState(ctx context.Context, state string) (string, error) {
	oauthState, err := sm.db.ValidateAndDeleteOAuthState(ctx, state)
	if err != nil {
		return "", fmt.Errorf("state validation failed: %w", err)
	}

	return oauthState.SessionID, nil
}
