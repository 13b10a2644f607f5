// Package config provides application configuration management using environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Pool      PoolConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	WebSocket WebSocketConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPPort string
	Host     string
	Env      string
}

// PoolConfig holds configuration for the remote pool backend: OAuth
// endpoints for member login plus the service API key used for
// server-to-server data fetches.
type PoolConfig struct {
	BaseURL      string
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	APIKey       string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	TokenEncryptionKey []byte
	SessionExpiryHours int
	StateExpiryMinutes int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// WebSocketConfig holds configuration for the live leaderboard feed
type WebSocketConfig struct {
	Enabled             bool
	PollIntervalSeconds int
	MaxClientsPerUser   int
}

// Load loads configuration from environment variables
// It optionally loads from a .env file if it exists
func Load() (*Config, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}

	// Load Server Config
	cfg.Server = ServerConfig{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		Host:     getEnv("SERVER_HOST", "localhost"),
		Env:      getEnv("ENVIRONMENT", "development"),
	}

	// Load Pool Backend Config
	baseURL := getEnv("POOL_API_BASE_URL", "https://api.fairwayclub.golf/v1")
	cfg.Pool = PoolConfig{
		BaseURL:      baseURL,
		AuthURL:      getEnv("POOL_OAUTH_AUTH_URL", baseURL+"/oauth/authorize"),
		TokenURL:     getEnv("POOL_OAUTH_TOKEN_URL", baseURL+"/oauth/token"),
		ClientID:     getEnv("POOL_CLIENT_ID", ""),
		ClientSecret: getEnv("POOL_CLIENT_SECRET", ""),
		RedirectURI:  getEnv("POOL_REDIRECT_URI", ""),
		Scopes:       strings.Split(getEnv("POOL_OAUTH_SCOPES", "profile email entries"), " "),
		APIKey:       getEnv("POOL_API_KEY", ""),
	}

	// Load Database Config
	maxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))

	cfg.Database = DatabaseConfig{
		Host:         getEnv("DB_HOST", "localhost"),
		Port:         getEnv("DB_PORT", "5432"),
		User:         getEnv("DB_USER", "golfpool"),
		Password:     getEnv("DB_PASSWORD", ""),
		Name:         getEnv("DB_NAME", "golfpool_db"),
		SSLMode:      getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns: maxOpenConns,
		MaxIdleConns: maxIdleConns,
	}

	// Load Security Config
	sessionExpiryHours, _ := strconv.Atoi(getEnv("SESSION_EXPIRY_HOURS", "24"))
	stateExpiryMinutes, _ := strconv.Atoi(getEnv("STATE_EXPIRY_MINUTES", "10"))

	encryptionKeyHex := getEnv("TOKEN_ENCRYPTION_KEY", "")
	encryptionKey, err := hex.DecodeString(encryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_ENCRYPTION_KEY: must be a hex-encoded string: %w", err)
	}

	cfg.Security = SecurityConfig{
		TokenEncryptionKey: encryptionKey,
		SessionExpiryHours: sessionExpiryHours,
		StateExpiryMinutes: stateExpiryMinutes,
	}

	// Load Logging Config
	cfg.Logging = LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	// Load WebSocket Config
	pollInterval, _ := strconv.Atoi(getEnv("WS_POLL_INTERVAL_SECONDS", "60"))
	maxClients, _ := strconv.Atoi(getEnv("WS_MAX_CLIENTS_PER_USER", "3"))

	cfg.WebSocket = WebSocketConfig{
		Enabled:             getEnv("WS_ENABLED", "true") == "true",
		PollIntervalSeconds: pollInterval,
		MaxClientsPerUser:   maxClients,
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate Pool Backend Config
	if c.Pool.ClientID == "" {
		return fmt.Errorf("POOL_CLIENT_ID is required")
	}
	if c.Pool.ClientSecret == "" {
		return fmt.Errorf("POOL_CLIENT_SECRET is required")
	}
	if c.Pool.RedirectURI == "" {
		return fmt.Errorf("POOL_REDIRECT_URI is required")
	}
	if c.Pool.APIKey == "" {
		return fmt.Errorf("POOL_API_KEY is required")
	}

	// Validate Database Config
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	// Validate Security Config
	if len(c.Security.TokenEncryptionKey) != 32 {
		return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 32 bytes (64 hex characters) for AES-256")
	}
	if c.Security.SessionExpiryHours <= 0 {
		return fmt.Errorf("SESSION_EXPIRY_HOURS must be positive")
	}
	if c.Security.StateExpiryMinutes <= 0 {
		return fmt.Errorf("STATE_EXPIRY_MINUTES must be positive")
	}

	// Validate Logging Config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	// Validate WebSocket Config
	if c.WebSocket.PollIntervalSeconds <= 0 {
		return fmt.Errorf("WS_POLL_INTERVAL_SECONDS must be positive")
	}
	if c.WebSocket.MaxClientsPerUser <= 0 {
		return fmt.Errorf("WS_MAX_CLIENTS_PER_USER must be positive")
	}

	return nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
