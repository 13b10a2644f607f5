// Package models defines data structures for pool members, tournaments,
// entries, and authentication state.
package models

import (
	"database/sql"
	"time"
)

// User represents a pool member who can log in to the dashboard
type User struct {
	ID           int64          `json:"id"`
	PoolMemberID string         `json:"pool_member_id"`
	Username     string         `json:"username"`
	DisplayName  sql.NullString `json:"display_name"`
	Email        sql.NullString `json:"email"`
	AvatarURL    sql.NullString `json:"avatar_url"`
	IsAdmin      bool           `json:"is_admin"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// OAuthToken represents an encrypted OAuth token for the pool backend
type OAuthToken struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	AccessToken  string    `json:"access_token"`  // Encrypted
	RefreshToken string    `json:"refresh_token"` // Encrypted
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	Scope        string    `json:"scope"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OAuthState represents a temporary OAuth state for CSRF protection
type OAuthState struct {
	State     string    `json:"state"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthSession represents a user authentication session
type AuthSession struct {
	SessionID    string         `json:"session_id"`
	UserID       sql.NullInt64  `json:"user_id"`
	AuthStatus   string         `json:"auth_status"` // 'pending', 'authenticated', 'failed'
	ErrorMessage sql.NullString `json:"error_message"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

// AuthStatus constants
const (
	AuthStatusPending       = "pending"
	AuthStatusAuthenticated = "authenticated"
	AuthStatusFailed        = "failed"
)

// IsExpired checks if the auth session has expired
func (s *AuthSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsAuthenticated checks if the session completed authentication and is still valid
func (s *AuthSession) IsAuthenticated() bool {
	return s.AuthStatus == AuthStatusAuthenticated && !s.IsExpired()
}

// IsExpired checks if the OAuth state has expired
func (s *OAuthState) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
